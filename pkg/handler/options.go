package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// Option configures a Handler.
type Option interface {
	apply(*Handler)
}

type optionFunc func(*Handler)

func (f optionFunc) apply(h *Handler) { f(h) }

// WithStore sets the job store. Required.
func WithStore(s core.Store) Option {
	return optionFunc(func(h *Handler) {
		h.store = s
	})
}

// WithLocker sets the process lock implementation. Required.
func WithLocker(l core.Locker) Option {
	return optionFunc(func(h *Handler) {
		h.locker = l
	})
}

// WithDispatcher sets how continuations are fired.
// Default: an in-process dispatcher bound to the handler.
func WithDispatcher(d core.Dispatcher) Option {
	return optionFunc(func(h *Handler) {
		h.dispatcher = d
	})
}

// WithScheduler sets where the health-check is registered.
// Without one, no health-check is armed.
func WithScheduler(s core.Scheduler) Option {
	return optionFunc(func(h *Handler) {
		h.scheduler = s
	})
}

// WithObserver adds a lifecycle observer. May be given more than once.
func WithObserver(o core.Observer) Option {
	return optionFunc(func(h *Handler) {
		h.observers = append(h.observers, o)
	})
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(h *Handler) {
		h.logger = l
	})
}

// WithClock replaces the time source used for timestamps and the time budget.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(h *Handler) {
		h.now = now
	})
}

// WithMemoryUsage replaces the memory usage probe.
func WithMemoryUsage(usage func() uint64) Option {
	return optionFunc(func(h *Handler) {
		h.memUsage = usage
	})
}

// WithNewJobAttrs filters caller attributes before a job is created.
// Returning an empty map cancels creation.
func WithNewJobAttrs(fn func(ctx context.Context, attrs map[string]any) map[string]any) Option {
	return optionFunc(func(h *Handler) {
		h.newJobAttrs = fn
	})
}

// WithReturnedJob filters every job read through GetJob and GetJobs.
func WithReturnedJob(fn func(ctx context.Context, job *core.Job) *core.Job) Option {
	return optionFunc(func(h *Handler) {
		h.returnedJob = fn
	})
}

// WithTimeExceeded overrides the time budget decision.
func WithTimeExceeded(fn func(exceeded bool) bool) Option {
	return optionFunc(func(h *Handler) {
		h.timeExceeded = fn
	})
}

// WithMemoryExceeded overrides the memory budget decision.
func WithMemoryExceeded(fn func(exceeded bool) bool) Option {
	return optionFunc(func(h *Handler) {
		h.memoryExceeded = fn
	})
}
