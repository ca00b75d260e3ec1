package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/resumable-jobs/pkg/core"
	"github.com/jdziat/resumable-jobs/pkg/lock"
	"github.com/jdziat/resumable-jobs/pkg/storage"
)

const testIdentifier = "catalog-sync"

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeScheduler records health-check registrations.
type fakeScheduler struct {
	mu          sync.Mutex
	entries     map[string]func()
	intervals   map[string]time.Duration
	crons       map[string]string
	schedules   int
	unschedules int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		entries:   make(map[string]func()),
		intervals: make(map[string]time.Duration),
		crons:     make(map[string]string),
	}
}

func (s *fakeScheduler) Scheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

func (s *fakeScheduler) Schedule(name string, interval time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = fn
	s.intervals[name] = interval
	s.schedules++
	return nil
}

func (s *fakeScheduler) ScheduleCron(name, expr string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = fn
	s.crons[name] = expr
	s.schedules++
	return nil
}

// intervalOnlyScheduler hides ScheduleCron.
type intervalOnlyScheduler struct {
	core.Scheduler
}

func (s *fakeScheduler) Unschedule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		delete(s.entries, name)
		s.unschedules++
	}
}

// fire runs a registered entry as the scheduler would on a tick.
func (s *fakeScheduler) fire(name string) bool {
	s.mu.Lock()
	fn, ok := s.entries[name]
	s.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

// countingDispatcher records continuations without running them.
type countingDispatcher struct {
	mu    sync.Mutex
	calls int
}

func (d *countingDispatcher) Dispatch(ctx context.Context) error {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return nil
}

func (d *countingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// harness bundles a handler with its collaborators.
type harness struct {
	h          *Handler
	store      *storage.GormStorage
	locker     *lock.GormLocker
	scheduler  *fakeScheduler
	dispatcher *countingDispatcher
	clock      *fakeClock
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")
	require.NoError(t, storage.ConfigurePool(db))
	return db
}

// newHarness builds a migrated handler. Later options override the
// harness defaults.
func newHarness(t *testing.T, cfg Config, process ItemProcessor, opts ...Option) *harness {
	t.Helper()
	ctx := context.Background()
	db := openTestDB(t)

	store := storage.NewGormStorage(db)
	require.NoError(t, store.Migrate(ctx))
	locker := lock.NewGormLocker(db)
	require.NoError(t, locker.Migrate(ctx))

	if cfg.Identifier == "" {
		cfg.Identifier = testIdentifier
	}
	if process == nil {
		process = func(context.Context, any, *core.Job) error { return nil }
	}

	hs := &harness{
		store:      store,
		locker:     locker,
		scheduler:  newFakeScheduler(),
		dispatcher: &countingDispatcher{},
		clock:      newFakeClock(),
	}
	base := []Option{
		WithStore(store),
		WithLocker(locker),
		WithScheduler(hs.scheduler),
		WithDispatcher(hs.dispatcher),
		WithClock(hs.clock.Now),
		WithMemoryUsage(func() uint64 { return 0 }),
	}
	h, err := New(cfg, process, append(base, opts...)...)
	require.NoError(t, err)
	hs.h = h
	return hs
}

// createJob creates a job over items.
func (hs *harness) createJob(t *testing.T, items ...any) *core.Job {
	t.Helper()
	if items == nil {
		items = []any{}
	}
	job, err := hs.h.CreateJob(context.Background(), map[string]any{core.DefaultDataKey: items})
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

// reload reads a job back from the store.
func (hs *harness) reload(t *testing.T, id string) *core.Job {
	t.Helper()
	job, err := hs.store.Get(context.Background(), testIdentifier, id)
	require.NoError(t, err)
	require.NotNil(t, job, "job %s not found", id)
	return job
}

// recorder is an item processor that remembers what it saw.
type recorder struct {
	mu    sync.Mutex
	items []any
}

func (r *recorder) process(ctx context.Context, item any, job *core.Job) error {
	r.mu.Lock()
	r.items = append(r.items, item)
	r.mu.Unlock()
	return nil
}

func (r *recorder) seen() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.items...)
}

func seq(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = float64(i)
	}
	return items
}

// nopStore satisfies core.Store for constructor tests.
type nopStore struct{}

func (nopStore) Migrate(context.Context) error { return nil }
func (nopStore) Insert(context.Context, string, *core.Job) error { return nil }
func (nopStore) Get(context.Context, string, string) (*core.Job, error) { return nil, nil }
func (nopStore) Next(context.Context, string) (*core.Job, error) { return nil, nil }
func (nopStore) List(context.Context, string, core.JobFilter) ([]*core.Job, error) {
	return nil, nil
}
func (nopStore) Update(context.Context, string, *core.Job) error { return nil }
func (nopStore) CountActive(context.Context, string) (int64, error) { return 0, nil }

// nopLocker satisfies core.Locker for constructor tests.
type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string, time.Duration) (string, bool, error) {
	return "token", true, nil
}
func (nopLocker) Release(context.Context, string, string) error { return nil }
func (nopLocker) Held(context.Context, string) (bool, error) { return false, nil }
