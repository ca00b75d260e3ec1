package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

var (
	// ErrNoTarget is returned when a dispatcher has nothing to invoke.
	ErrNoTarget = errors.New("jobs: dispatcher has no target")

	// ErrDispatcherClosed is returned by Dispatch after Close.
	ErrDispatcherClosed = errors.New("jobs: dispatcher is closed")
)

// Target is the receiving end of a continuation.
type Target interface {
	Handle(ctx context.Context) error
}

// LocalDispatcher runs each continuation in a new goroutine of the same
// process. Every continuation is a fresh invocation; nothing is carried
// over except what the store holds.
type LocalDispatcher struct {
	mu     sync.Mutex
	target Target
	closed bool

	stop   context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	wg     sync.WaitGroup
}

var _ core.Dispatcher = (*LocalDispatcher)(nil)

// NewLocal creates an unbound in-process dispatcher. Bind a target before
// the first dispatch.
func NewLocal(logger *slog.Logger) *LocalDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	stop, cancel := context.WithCancel(context.Background())
	return &LocalDispatcher{logger: logger, stop: stop, cancel: cancel}
}

// Bind sets the continuation target.
func (d *LocalDispatcher) Bind(t Target) {
	d.mu.Lock()
	d.target = t
	d.mu.Unlock()
}

// Dispatch starts an invocation in the background and returns immediately.
// The invocation outlives ctx's cancellation but keeps its values; only
// Close cancels it.
func (d *LocalDispatcher) Dispatch(ctx context.Context) error {
	d.mu.Lock()
	t, closed := d.target, d.closed
	if t != nil && !closed {
		d.wg.Add(1)
	}
	d.mu.Unlock()
	if closed {
		return ErrDispatcherClosed
	}
	if t == nil {
		return ErrNoTarget
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	release := context.AfterFunc(d.stop, cancel)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer release()
		if err := t.Handle(runCtx); err != nil {
			switch {
			case errors.Is(err, core.ErrProcessRunning):
				d.logger.Debug("continuation skipped, process locked")
			case errors.Is(err, ErrDispatcherClosed), errors.Is(err, context.Canceled):
				d.logger.Debug("continuation stopped by shutdown", "error", err)
			default:
				d.logger.Error("continuation failed", "error", err)
			}
		}
	}()
	return nil
}

// Close stops new continuations and cancels running ones. Jobs they leave
// behind stay in the store for the next process.
func (d *LocalDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
}

// Wait blocks until every dispatched invocation, including those they
// dispatched in turn, has returned.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
