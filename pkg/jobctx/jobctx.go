// Package jobctx provides public access to job context for item processors.
package jobctx

import (
	"context"

	"github.com/jdziat/resumable-jobs/pkg/core"
	intctx "github.com/jdziat/resumable-jobs/pkg/internal/context"
)

// JobFromContext returns the in-flight Job from context, or nil if not inside
// an item processor. The returned job must be treated as read-only.
func JobFromContext(ctx context.Context) *core.Job {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return nil
	}
	return jc.Job
}

// JobIDFromContext returns the in-flight job ID, or empty string if not inside an item processor.
func JobIDFromContext(ctx context.Context) string {
	job := JobFromContext(ctx)
	if job == nil {
		return ""
	}
	return job.ID
}

// ItemIndexFromContext returns the dataset index of the item being processed.
// Returns (-1, false) if not inside an item processor.
func ItemIndexFromContext(ctx context.Context) (int, bool) {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return -1, false
	}
	return jc.Index, true
}

// IdentifierFromContext returns the identifier of the handler running the job.
func IdentifierFromContext(ctx context.Context) string {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return ""
	}
	return jc.Identifier
}

// WithActor returns a context that records actor as created_by on jobs
// created with it.
func WithActor(ctx context.Context, actor string) context.Context {
	return intctx.WithActor(ctx, actor)
}

// ActorFromContext returns the actor set by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	return intctx.GetActor(ctx)
}
