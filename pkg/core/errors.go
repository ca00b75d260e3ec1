package core

import (
	"errors"
	"fmt"
)

// Lookup and write errors
var (
	ErrJobNotFound    = errors.New("jobs: job not found")
	ErrInvalidOrder   = errors.New("jobs: invalid order or order field")
	ErrProcessRunning = errors.New("jobs: another invocation holds the process lock")
	ErrLockNotHeld    = errors.New("jobs: lock not held by this token")
	ErrJobTerminal    = errors.New("jobs: job is completed or failed")
)

// Validation errors
var (
	ErrInvalidIdentifier = errors.New("jobs: invalid handler identifier (must be alphanumeric, start with letter)")
	ErrIdentifierTooLong = errors.New("jobs: handler identifier too long")
	ErrInvalidDataKey    = errors.New("jobs: invalid data key")
	ErrNoItemProcessor   = errors.New("jobs: no item processor configured")
	ErrNoStore           = errors.New("jobs: no store configured")
	ErrNoLocker          = errors.New("jobs: no locker configured")
	ErrInvalidConfig     = errors.New("jobs: invalid handler config")
)

// Dataset errors. These are configuration errors and are never swallowed.
var (
	ErrDataKeyNotSet   = errors.New("jobs: job data key not set")
	ErrDataNotSequence = errors.New("jobs: job data is not an ordered sequence")
)

// ItemError reports a fault raised while processing a single dataset item.
type ItemError struct {
	JobID string
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("jobs: job %s item %d: %v", e.JobID, e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking item processor.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
