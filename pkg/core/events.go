package core

import (
	"context"
	"time"
)

// Event is the interface for all job lifecycle events.
type Event interface {
	eventMarker()
}

// JobCreated is emitted when a job is persisted for the first time.
type JobCreated struct {
	Job       *Job
	Timestamp time.Time
}

func (*JobCreated) eventMarker() {}

// JobUpdated is emitted after every non-terminal write, including each
// per-item progress checkpoint.
type JobUpdated struct {
	Job       *Job
	Timestamp time.Time
}

func (*JobUpdated) eventMarker() {}

// JobCompleted is emitted when a job's dataset is exhausted.
type JobCompleted struct {
	Job       *Job
	Timestamp time.Time
}

func (*JobCompleted) eventMarker() {}

// JobFailed is emitted when a job is failed.
type JobFailed struct {
	Job       *Job
	Reason    string
	Timestamp time.Time
}

func (*JobFailed) eventMarker() {}

// Observer receives lifecycle notifications from a handler.
// Observers run synchronously on the handler's goroutine.
type Observer interface {
	OnCreated(ctx context.Context, job *Job)
	OnUpdated(ctx context.Context, job *Job)
	OnCompleted(ctx context.Context, job *Job)
	OnFailed(ctx context.Context, job *Job)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Created   func(context.Context, *Job)
	Updated   func(context.Context, *Job)
	Completed func(context.Context, *Job)
	Failed    func(context.Context, *Job)
}

func (o ObserverFuncs) OnCreated(ctx context.Context, job *Job) {
	if o.Created != nil {
		o.Created(ctx, job)
	}
}

func (o ObserverFuncs) OnUpdated(ctx context.Context, job *Job) {
	if o.Updated != nil {
		o.Updated(ctx, job)
	}
}

func (o ObserverFuncs) OnCompleted(ctx context.Context, job *Job) {
	if o.Completed != nil {
		o.Completed(ctx, job)
	}
}

func (o ObserverFuncs) OnFailed(ctx context.Context, job *Job) {
	if o.Failed != nil {
		o.Failed(ctx, job)
	}
}
