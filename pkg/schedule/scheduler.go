package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// DefaultInitialDelay holds back a new trigger's first firing so it does not
// race the invocation that was dispatched alongside it.
const DefaultInitialDelay = 30 * time.Second

// Option configures a CronScheduler.
type Option func(*CronScheduler)

// WithInitialDelay sets how long after registration a trigger first fires.
func WithInitialDelay(d time.Duration) Option {
	return func(s *CronScheduler) { s.initialDelay = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *CronScheduler) { s.logger = l }
}

// CronScheduler implements core.Scheduler with named entries on a
// robfig/cron runner. A trigger still running when its next tick arrives
// is skipped.
type CronScheduler struct {
	cron         *cron.Cron
	logger       *slog.Logger
	initialDelay time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

var _ core.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler creates a scheduler. Call Start to begin firing.
func NewCronScheduler(opts ...Option) *CronScheduler {
	s := &CronScheduler{
		logger:       slog.Default(),
		initialDelay: DefaultInitialDelay,
		entries:      make(map[string]cron.EntryID),
	}
	for _, o := range opts {
		o(s)
	}
	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Start runs the scheduler in its own goroutine.
func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running
// triggers have finished.
func (s *CronScheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Scheduled reports whether name is registered.
func (s *CronScheduler) Scheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Schedule registers fn to fire every interval, first after the initial delay.
// Registering an existing name is a no-op.
func (s *CronScheduler) Schedule(name string, interval time.Duration, fn func()) error {
	if interval <= 0 {
		return fmt.Errorf("jobs: schedule %q: interval must be positive", name)
	}
	first := time.Now().Add(s.initialDelay)
	return s.add(name, StartingAt(first, Every(interval)), fn)
}

// ScheduleCron registers fn under a cron expression.
func (s *CronScheduler) ScheduleCron(name, expr string, fn func()) error {
	sched, err := ParseCron(expr)
	if err != nil {
		return fmt.Errorf("jobs: schedule %q: %w", name, err)
	}
	return s.add(name, sched, fn)
}

func (s *CronScheduler) add(name string, sched Schedule, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return nil
	}
	s.entries[name] = s.cron.Schedule(sched, cron.FuncJob(fn))
	s.logger.Debug("trigger scheduled", "name", name)
	return nil
}

// Unschedule removes name. Unknown names are ignored.
func (s *CronScheduler) Unschedule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	s.logger.Debug("trigger unscheduled", "name", name)
}

// Next returns when name fires next. The second result is false when name
// is not registered or the scheduler has not computed a time yet.
func (s *CronScheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
