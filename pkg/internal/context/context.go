package context

import (
	"context"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// JobContextKey is the key for storing job context in context.Context.
type JobContextKey struct{}

// JobContext holds the in-flight job while an item processor runs.
type JobContext struct {
	Job        *core.Job
	Identifier string
	// Index is the dataset position of the item being processed.
	Index int
}

// GetJobContext retrieves the job context from a context.Context.
func GetJobContext(ctx context.Context) *JobContext {
	if jc, ok := ctx.Value(JobContextKey{}).(*JobContext); ok {
		return jc
	}
	return nil
}

// WithJobContext adds job context to a context.Context.
func WithJobContext(ctx context.Context, jc *JobContext) context.Context {
	return context.WithValue(ctx, JobContextKey{}, jc)
}

// ActorKey is the key for storing the acting identity in context.Context.
type ActorKey struct{}

// GetActor retrieves the acting identity, or "" if none is set.
func GetActor(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey{}).(string); ok {
		return actor
	}
	return ""
}

// WithActor adds the acting identity to a context.Context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey{}, actor)
}
