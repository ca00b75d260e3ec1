package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jdziat/resumable-jobs/pkg/core"
	"github.com/jdziat/resumable-jobs/pkg/dispatch"
	"github.com/jdziat/resumable-jobs/pkg/memlimit"
)

// ItemProcessor processes one dataset item. A returned error or a panic is
// an item fault and fails the job. The context carries the in-flight job for
// jobctx.JobFromContext.
type ItemProcessor func(ctx context.Context, item any, job *core.Job) error

// Handler runs resumable jobs for one identifier.
type Handler struct {
	cfg     Config
	process ItemProcessor
	memory  memlimit.Budget

	store      core.Store
	locker     core.Locker
	dispatcher core.Dispatcher
	scheduler  core.Scheduler
	observers  []core.Observer
	logger     *slog.Logger
	now        func() time.Time
	memUsage   func() uint64

	// base parents health-check invocations; Close cancels it.
	base  context.Context
	stop  context.CancelFunc
	local *dispatch.LocalDispatcher // set when the handler owns its dispatcher

	// Hooks
	newJobAttrs    func(context.Context, map[string]any) map[string]any
	returnedJob    func(context.Context, *core.Job) *core.Job
	timeExceeded   func(bool) bool
	memoryExceeded func(bool) bool

	// Event stream
	mu        sync.RWMutex
	eventSubs []chan core.Event
}

// New creates a handler. A store and a locker are required.
func New(cfg Config, process ItemProcessor, opts ...Option) (*Handler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if process == nil {
		return nil, core.ErrNoItemProcessor
	}

	h := &Handler{
		cfg:     cfg,
		process: process,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt.apply(h)
	}
	if h.store == nil {
		return nil, core.ErrNoStore
	}
	if h.locker == nil {
		return nil, core.ErrNoLocker
	}
	h.logger = h.logger.With("identifier", cfg.Identifier)

	limit, err := memlimit.Resolve(cfg.MemoryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: memory limit: %w", core.ErrInvalidConfig, err)
	}
	h.memory = memlimit.Budget{Limit: limit, Fraction: cfg.MemoryFraction, Usage: h.memUsage}

	if h.dispatcher == nil {
		h.local = dispatch.NewLocal(h.logger)
		h.local.Bind(h)
		h.dispatcher = h.local
	}
	h.base, h.stop = context.WithCancel(context.Background())
	return h, nil
}

// Close stops health-check ticks from starting invocations and cancels any
// they are running. When the handler created its own in-process
// dispatcher, that dispatcher is closed and waited for too. Unfinished jobs
// stay in the store. A dispatcher passed with WithDispatcher is left to the
// caller.
func (h *Handler) Close() {
	h.stop()
	if h.local != nil {
		h.local.Close()
		h.local.Wait()
	}
}

// Config returns the effective configuration.
func (h *Handler) Config() Config {
	return h.cfg
}

// Identifier returns the handler identifier.
func (h *Handler) Identifier() string {
	return h.cfg.Identifier
}

// Events returns a channel for receiving lifecycle events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (h *Handler) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	h.mu.Lock()
	h.eventSubs = append(h.eventSubs, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed. After Unsubscribe returns, no further events
// will be sent to the channel.
func (h *Handler) Unsubscribe(ch <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.eventSubs {
		if sub == ch {
			h.eventSubs = append(h.eventSubs[:i], h.eventSubs[i+1:]...)
			return
		}
	}
}

func (h *Handler) emit(e core.Event) {
	h.mu.RLock()
	subs := make([]chan core.Event, len(h.eventSubs))
	copy(subs, h.eventSubs)
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if full
		}
	}
}

func (h *Handler) notifyCreated(ctx context.Context, job *core.Job) {
	snapshot := job.Clone()
	for _, o := range h.observers {
		o.OnCreated(ctx, snapshot)
	}
	h.emit(&core.JobCreated{Job: snapshot, Timestamp: h.now()})
}

func (h *Handler) notifyUpdated(ctx context.Context, job *core.Job) {
	snapshot := job.Clone()
	for _, o := range h.observers {
		o.OnUpdated(ctx, snapshot)
	}
	h.emit(&core.JobUpdated{Job: snapshot, Timestamp: h.now()})
}

func (h *Handler) notifyCompleted(ctx context.Context, job *core.Job) {
	snapshot := job.Clone()
	for _, o := range h.observers {
		o.OnCompleted(ctx, snapshot)
	}
	h.emit(&core.JobCompleted{Job: snapshot, Timestamp: h.now()})
}

func (h *Handler) notifyFailed(ctx context.Context, job *core.Job) {
	snapshot := job.Clone()
	for _, o := range h.observers {
		o.OnFailed(ctx, snapshot)
	}
	h.emit(&core.JobFailed{Job: snapshot, Reason: job.FailureReason, Timestamp: h.now()})
}
