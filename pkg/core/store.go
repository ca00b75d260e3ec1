package core

import (
	"context"
	"time"
)

// Order directions accepted by JobFilter.
const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// OrderBySeq orders by insertion sequence.
const OrderBySeq = "seq"

// JobFilter selects and orders jobs for listing.
type JobFilter struct {
	// Statuses restricts results to these statuses. Empty means any status.
	Statuses []JobStatus
	// Order is ASC or DESC. Default: DESC
	Order string
	// OrderBy is one of seq, id, status, created_at, updated_at. Default: seq
	OrderBy string
}

// Store defines the persistence layer for jobs. Every job belongs to the
// namespace of the handler identifier that created it.
type Store interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Insert persists a new job.
	Insert(ctx context.Context, identifier string, job *Job) error

	// Get returns the job with the given id, or nil if none exists.
	Get(ctx context.Context, identifier, id string) (*Job, error)

	// Next returns the oldest queued or processing job by insertion order,
	// or nil if none exists.
	Next(ctx context.Context, identifier string) (*Job, error)

	// List returns the jobs matching filter.
	List(ctx context.Context, identifier string, filter JobFilter) ([]*Job, error)

	// Update rewrites an existing job. Returns ErrJobNotFound if no row matched.
	Update(ctx context.Context, identifier string, job *Job) error

	// CountActive counts queued and processing jobs.
	CountActive(ctx context.Context, identifier string) (int64, error)
}

// Locker provides a time-boxed advisory lock. Locks are not fenced: a holder
// whose lock expired is not prevented from continuing.
type Locker interface {
	// Acquire takes the named lock for ttl unless an unexpired holder exists.
	// The returned token identifies this holder.
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, ok bool, err error)

	// Release drops the lock if token still holds it.
	Release(ctx context.Context, name, token string) error

	// Held reports whether an unexpired holder exists.
	Held(ctx context.Context, name string) (bool, error)
}

// Dispatcher fires a non-blocking continuation that triggers another
// invocation of the handler.
type Dispatcher interface {
	Dispatch(ctx context.Context) error
}

// Scheduler registers named recurring triggers.
type Scheduler interface {
	// Scheduled reports whether a trigger with this name is registered.
	Scheduled(name string) bool
	// Schedule registers fn to run every interval under name.
	Schedule(name string, interval time.Duration, fn func()) error
	// Unschedule removes the named trigger. Unknown names are ignored.
	Unschedule(name string)
}
