package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jdziat/resumable-jobs/pkg/core"
	intctx "github.com/jdziat/resumable-jobs/pkg/internal/context"
	"github.com/jdziat/resumable-jobs/pkg/security"
)

// Filter selects and orders jobs for GetJobs.
type Filter = core.JobFilter

// CreateJob persists a new queued job built from attrs. Generated fields
// win over caller attrs: id, status, created_at and created_by are always
// generated, and every other core field name in attrs is dropped.
// Returns nil, nil when attrs is empty.
func (h *Handler) CreateJob(ctx context.Context, attrs map[string]any) (*core.Job, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	if h.newJobAttrs != nil {
		attrs = h.newJobAttrs(ctx, attrs)
		if len(attrs) == 0 {
			return nil, nil
		}
	}

	actor := intctx.GetActor(ctx)
	if actor == "" {
		actor = h.cfg.DefaultActor
	}

	job := &core.Job{
		ID:        uuid.New().String(),
		Status:    core.StatusQueued,
		CreatedAt: h.now().UTC(),
		CreatedBy: actor,
		Attrs:     make(map[string]any, len(attrs)),
	}
	for k, v := range attrs {
		if core.IsCoreField(k) {
			continue
		}
		job.Attrs[k] = v
	}

	if err := h.store.Insert(ctx, h.cfg.Identifier, job); err != nil {
		return nil, fmt.Errorf("jobs: create job: %w", err)
	}
	h.logger.Debug("job created", "job_id", job.ID)
	h.notifyCreated(ctx, job)
	return job, nil
}

// GetJob returns the job with the given id. With an empty id it returns the
// oldest queued or processing job. Returns nil, nil when nothing matches.
func (h *Handler) GetJob(ctx context.Context, id string) (*core.Job, error) {
	var (
		job *core.Job
		err error
	)
	if id == "" {
		job, err = h.store.Next(ctx, h.cfg.Identifier)
	} else {
		job, err = h.store.Get(ctx, h.cfg.Identifier, id)
	}
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	return h.returned(ctx, job), nil
}

// GetJobs lists jobs matching filter, newest first by default.
// Returns nil when nothing matches.
func (h *Handler) GetJobs(ctx context.Context, filter Filter) ([]*core.Job, error) {
	jobList, err := h.store.List(ctx, h.cfg.Identifier, filter)
	if err != nil {
		return nil, err
	}
	if len(jobList) == 0 {
		return nil, nil
	}
	for i, job := range jobList {
		jobList[i] = h.returned(ctx, job)
	}
	return jobList, nil
}

// UpdateJob stamps updated_at and persists job. Errors wrap
// core.ErrJobNotFound when no stored job has job's id; job is left
// untouched on any error.
func (h *Handler) UpdateJob(ctx context.Context, job *core.Job) (*core.Job, error) {
	if err := h.save(ctx, job, func(*core.Job) {}); err != nil {
		return nil, err
	}
	h.notifyUpdated(ctx, job)
	return job, nil
}

// UpdateJobByID reloads a job and persists it with a fresh updated_at.
func (h *Handler) UpdateJobByID(ctx context.Context, id string) (*core.Job, error) {
	job, err := h.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.UpdateJob(ctx, job)
}

// CompleteJob marks job completed. Terminal.
func (h *Handler) CompleteJob(ctx context.Context, job *core.Job) (*core.Job, error) {
	err := h.save(ctx, job, func(next *core.Job) {
		now := h.now().UTC()
		next.Status = core.StatusCompleted
		next.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}
	h.logger.Info("job completed", "job_id", job.ID, "progress", job.Progress, "total", job.Total)
	h.notifyCompleted(ctx, job)
	return job, nil
}

// CompleteJobByID marks the job with the given id completed.
func (h *Handler) CompleteJobByID(ctx context.Context, id string) (*core.Job, error) {
	job, err := h.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.CompleteJob(ctx, job)
}

// FailJob marks job failed, recording reason when it is not empty. Terminal.
func (h *Handler) FailJob(ctx context.Context, job *core.Job, reason string) (*core.Job, error) {
	err := h.save(ctx, job, func(next *core.Job) {
		now := h.now().UTC()
		next.Status = core.StatusFailed
		next.FailedAt = &now
		if reason != "" {
			next.FailureReason = security.SanitizeErrorMessage(reason)
		}
	})
	if err != nil {
		return nil, err
	}
	h.logger.Warn("job failed", "job_id", job.ID, "progress", job.Progress, "total", job.Total, "error", job.FailureReason)
	h.notifyFailed(ctx, job)
	return job, nil
}

// FailJobByID marks the job with the given id failed.
func (h *Handler) FailJobByID(ctx context.Context, id, reason string) (*core.Job, error) {
	job, err := h.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.FailJob(ctx, job, reason)
}

// IsQueueEmpty reports whether no queued or processing job remains.
func (h *Handler) IsQueueEmpty(ctx context.Context) (bool, error) {
	n, err := h.store.CountActive(ctx, h.cfg.Identifier)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// save applies mutate to a copy of job, stamps updated_at and writes it.
// job only changes once the write succeeded.
func (h *Handler) save(ctx context.Context, job *core.Job, mutate func(*core.Job)) error {
	if job == nil || job.ID == "" {
		return core.ErrJobNotFound
	}
	next := job.Clone()
	mutate(next)
	now := h.now().UTC()
	next.UpdatedAt = &now

	if err := h.store.Update(ctx, h.cfg.Identifier, next); err != nil {
		return fmt.Errorf("jobs: save job %s: %w", job.ID, err)
	}
	*job = *next
	return nil
}

func (h *Handler) lookup(ctx context.Context, id string) (*core.Job, error) {
	if id == "" {
		return nil, core.ErrJobNotFound
	}
	job, err := h.store.Get(ctx, h.cfg.Identifier, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	return job, nil
}

func (h *Handler) returned(ctx context.Context, job *core.Job) *core.Job {
	if h.returnedJob == nil {
		return job
	}
	return h.returnedJob(ctx, job)
}
