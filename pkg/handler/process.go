package handler

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/jdziat/resumable-jobs/pkg/core"
	intctx "github.com/jdziat/resumable-jobs/pkg/internal/context"
	"github.com/jdziat/resumable-jobs/pkg/security"
)

// invocation carries the budgets of one bounded run.
type invocation struct {
	h     *Handler
	start time.Time

	// capped is set when the last job stopped at its item cap with items left.
	capped bool
}

func (h *Handler) newInvocation() *invocation {
	return &invocation{h: h, start: h.now()}
}

func (inv *invocation) timeExceeded() bool {
	exceeded := inv.h.now().Sub(inv.start) >= inv.h.cfg.TimeLimit
	if inv.h.timeExceeded != nil {
		exceeded = inv.h.timeExceeded(exceeded)
	}
	return exceeded
}

func (inv *invocation) memoryExceeded() bool {
	exceeded := inv.h.memory.Exceeded()
	if inv.h.memoryExceeded != nil {
		exceeded = inv.h.memoryExceeded(exceeded)
	}
	return exceeded
}

func (inv *invocation) exhausted() bool {
	return inv.timeExceeded() || inv.memoryExceeded()
}

// ProcessJob advances job through its dataset until the dataset is
// exhausted, itemsPerBatch items were processed, or a budget runs out.
// Progress is persisted after every item. itemsPerBatch <= 0 means no cap.
//
// A fault in the item processor returns a *core.ItemError and leaves
// progress at the faulting index. A missing or non-sequence dataset
// returns an error wrapping core.ErrDataKeyNotSet or core.ErrDataNotSequence.
func (h *Handler) ProcessJob(ctx context.Context, job *core.Job, itemsPerBatch int) (*core.Job, error) {
	return h.processJob(ctx, h.newInvocation(), job, itemsPerBatch)
}

func (h *Handler) processJob(ctx context.Context, inv *invocation, job *core.Job, itemsPerBatch int) (*core.Job, error) {
	if job == nil {
		return nil, core.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return job, fmt.Errorf("%w: %s is %s", core.ErrJobTerminal, job.ID, job.Status)
	}

	if job.Status != core.StatusProcessing {
		err := h.save(ctx, job, func(next *core.Job) {
			now := h.now().UTC()
			next.Status = core.StatusProcessing
			next.StartedProcessingAt = &now
		})
		if err != nil {
			return job, err
		}
		h.logger.Info("job started", "job_id", job.ID)
		h.notifyUpdated(ctx, job)
	}

	items, err := h.dataset(job)
	if err != nil {
		return job, err
	}
	job.Total = len(items)
	job.Progress = min(max(job.Progress, 0), job.Total)

	limit := security.ClampItemsPerBatch(itemsPerBatch)
	processed := 0
	inv.capped = false
	for i := job.Progress; i < job.Total; i++ {
		if err := ctx.Err(); err != nil {
			return job, err
		}
		if err := h.processItem(ctx, job, i, items[i]); err != nil {
			return job, &core.ItemError{JobID: job.ID, Index: i, Err: err}
		}
		// The item ran, so its checkpoint is written even if ctx was cancelled meanwhile.
		err := h.save(context.WithoutCancel(ctx), job, func(next *core.Job) {
			next.Progress = i + 1
		})
		if err != nil {
			return job, err
		}
		h.notifyUpdated(ctx, job)
		processed++

		if limit > 0 && processed >= limit {
			inv.capped = job.Progress < job.Total
			break
		}
		if inv.exhausted() {
			break
		}
	}

	if job.Progress >= job.Total {
		return h.CompleteJob(ctx, job)
	}
	h.logger.Debug("job paused", "job_id", job.ID, "progress", job.Progress, "total", job.Total)
	return job, nil
}

// dataset returns the job's items in order.
func (h *Handler) dataset(job *core.Job) ([]any, error) {
	raw, ok := job.Attr(h.cfg.DataKey)
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: job %s has no %q attribute", core.ErrDataKeyNotSet, job.ID, h.cfg.DataKey)
	}

	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, fmt.Errorf("%w: job %s %q is %T", core.ErrDataNotSequence, job.ID, h.cfg.DataKey, raw)
	}

	items := make([]any, v.Len())
	for i := range items {
		items[i] = v.Index(i).Interface()
	}
	return items, nil
}

// processItem runs the item processor, converting a panic into an error.
func (h *Handler) processItem(ctx context.Context, job *core.Job, index int, item any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r}
		}
	}()

	view := job.Clone()
	itemCtx := intctx.WithJobContext(ctx, &intctx.JobContext{
		Job:        view,
		Identifier: h.cfg.Identifier,
		Index:      index,
	})
	return h.process(itemCtx, item, view)
}
