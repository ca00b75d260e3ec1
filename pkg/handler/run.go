package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// Handle runs one invocation. It takes the process lock and processes jobs
// in insertion order until a budget runs out, a job stops at
// Config.ItemsPerBatch, or the queue is empty. Then it releases the lock. A
// non-empty queue is re-dispatched; an empty one cancels the health-check.
//
// Returns core.ErrProcessRunning when another invocation holds the lock.
// An item fault fails the in-flight job and ends the invocation without an
// error. A missing or malformed dataset also fails the job and is returned.
// Store and context errors end the invocation without re-dispatching; the
// health-check resumes the queue.
func (h *Handler) Handle(ctx context.Context) error {
	token, ok, err := h.locker.Acquire(ctx, h.cfg.LockName(), h.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("jobs: acquire process lock: %w", err)
	}
	if !ok {
		return core.ErrProcessRunning
	}

	resume, runErr := h.drain(ctx)
	h.unlock(ctx, token)
	if !resume {
		return runErr
	}

	empty, err := h.IsQueueEmpty(ctx)
	if err != nil {
		return errors.Join(runErr, err)
	}
	if empty {
		h.complete()
		return runErr
	}
	if err := h.Dispatch(ctx); err != nil {
		return errors.Join(runErr, fmt.Errorf("jobs: re-dispatch: %w", err))
	}
	return runErr
}

// drain processes jobs until the invocation must end. resume reports
// whether the queue state may be acted on afterwards. Budgets are checked
// after a job has run, so every invocation advances at least one item.
func (h *Handler) drain(ctx context.Context) (resume bool, runErr error) {
	inv := h.newInvocation()
	for {
		job, err := h.store.Next(ctx, h.cfg.Identifier)
		if err != nil {
			return false, err
		}
		if job == nil {
			return true, nil
		}

		err = h.runGuarded(ctx, inv, job)
		switch {
		case err == nil:
		case isFault(err):
			return h.failInFlight(ctx, job, err)
		default:
			return false, err
		}

		if inv.capped || inv.exhausted() {
			return true, nil
		}
	}
}

// runGuarded runs the bounded loop for job, turning a panic outside the
// item processor into a fault.
func (h *Handler) runGuarded(ctx context.Context, inv *invocation, job *core.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r}
		}
	}()
	_, err = h.processJob(ctx, inv, job, h.cfg.ItemsPerBatch)
	return err
}

// failInFlight records a fault on the in-flight job. Dataset errors are
// configuration errors and are returned after the job is failed.
func (h *Handler) failInFlight(ctx context.Context, job *core.Job, fault error) (bool, error) {
	h.logger.Error("job fault", "job_id", job.ID, "progress", job.Progress, "error", fault)
	if job.Status.IsTerminal() {
		return true, nil
	}
	if _, err := h.FailJob(ctx, job, fault.Error()); err != nil {
		return false, errors.Join(fault, err)
	}
	if isConfigError(fault) {
		return true, fault
	}
	return true, nil
}

func isFault(err error) bool {
	var itemErr *core.ItemError
	var panicErr *core.PanicError
	return errors.As(err, &itemErr) || errors.As(err, &panicErr) || isConfigError(err)
}

func isConfigError(err error) bool {
	return errors.Is(err, core.ErrDataKeyNotSet) || errors.Is(err, core.ErrDataNotSequence)
}

func (h *Handler) unlock(ctx context.Context, token string) {
	if err := h.locker.Release(context.WithoutCancel(ctx), h.cfg.LockName(), token); err != nil {
		h.logger.Warn("release process lock", "error", err)
	}
}

// Dispatch arms the health-check if it is not already scheduled, then
// fires an asynchronous continuation.
func (h *Handler) Dispatch(ctx context.Context) error {
	h.armHealthCheck()
	return h.dispatcher.Dispatch(ctx)
}

// cronScheduler is implemented by schedulers that take cron expressions.
type cronScheduler interface {
	ScheduleCron(name, expr string, fn func()) error
}

func (h *Handler) armHealthCheck() {
	name := h.cfg.HealthCheckName()
	if h.scheduler == nil || h.scheduler.Scheduled(name) {
		return
	}
	if h.cfg.HealthCheckCron != "" {
		if cs, ok := h.scheduler.(cronScheduler); ok {
			if err := cs.ScheduleCron(name, h.cfg.HealthCheckCron, h.healthCheckTick); err != nil {
				h.logger.Warn("schedule health-check", "error", err)
			}
			return
		}
		h.logger.Warn("scheduler does not support cron expressions, using interval",
			"interval", h.cfg.HealthCheckInterval)
	}
	if err := h.scheduler.Schedule(name, h.cfg.HealthCheckInterval, h.healthCheckTick); err != nil {
		h.logger.Warn("schedule health-check", "error", err)
	}
}

// HealthCheck resumes the queue if no invocation is running. An empty queue
// cancels the health-check instead.
func (h *Handler) HealthCheck(ctx context.Context) error {
	held, err := h.locker.Held(ctx, h.cfg.LockName())
	if err != nil {
		return fmt.Errorf("jobs: check process lock: %w", err)
	}
	if held {
		return nil
	}

	empty, err := h.IsQueueEmpty(ctx)
	if err != nil {
		return err
	}
	if empty {
		h.complete()
		return nil
	}

	if err := h.Handle(ctx); err != nil && !errors.Is(err, core.ErrProcessRunning) {
		return err
	}
	return nil
}

func (h *Handler) healthCheckTick() {
	if h.base.Err() != nil {
		return
	}
	if err := h.HealthCheck(h.base); err != nil {
		h.logger.Error("health-check failed", "error", err)
	}
}

// complete runs once the queue is empty.
func (h *Handler) complete() {
	if h.scheduler != nil {
		h.scheduler.Unschedule(h.cfg.HealthCheckName())
	}
	h.logger.Debug("queue empty")
}
