// Package jobs provides resumable background jobs that run across many
// short, bounded invocations.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	db, _ := gorm.Open(sqlite.Open("jobs.db"), &gorm.Config{})
//	h, _ := jobs.NewHandler(ctx, db, jobs.Config{Identifier: "catalog-sync"},
//	    func(ctx context.Context, item any, job *jobs.Job) error {
//	        return syncProduct(ctx, item)
//	    })
//
//	// Create a job over a dataset and start processing it
//	h.CreateJob(ctx, map[string]any{"data": productIDs})
//	h.Dispatch(ctx)
package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/resumable-jobs/pkg/core"
	"github.com/jdziat/resumable-jobs/pkg/handler"
	"github.com/jdziat/resumable-jobs/pkg/lock"
	"github.com/jdziat/resumable-jobs/pkg/memlimit"
	"github.com/jdziat/resumable-jobs/pkg/schedule"
	"github.com/jdziat/resumable-jobs/pkg/security"
	"github.com/jdziat/resumable-jobs/pkg/storage"
)

// Type aliases
type (
	// Job is a unit of deferred, resumable work.
	Job = core.Job

	// JobStatus represents the current state of a job.
	JobStatus = core.JobStatus

	// JobFilter selects and orders jobs for listing.
	JobFilter = core.JobFilter

	// Store defines the persistence layer for jobs.
	Store = core.Store

	// Locker provides the advisory process lock.
	Locker = core.Locker

	// Dispatcher fires continuations.
	Dispatcher = core.Dispatcher

	// Scheduler registers the recurring health-check.
	Scheduler = core.Scheduler

	// Observer receives lifecycle notifications.
	Observer = core.Observer

	// ObserverFuncs adapts plain functions to Observer.
	ObserverFuncs = core.ObserverFuncs

	// Event is the interface for all lifecycle events.
	Event = core.Event

	// JobCreated is emitted when a job is created.
	JobCreated = core.JobCreated

	// JobUpdated is emitted after each checkpoint.
	JobUpdated = core.JobUpdated

	// JobCompleted is emitted when a job's dataset is exhausted.
	JobCompleted = core.JobCompleted

	// JobFailed is emitted when a job fails.
	JobFailed = core.JobFailed

	// ItemError reports a fault on one dataset item.
	ItemError = core.ItemError

	// Handler runs resumable jobs for one identifier.
	Handler = handler.Handler

	// Config describes one handler instance.
	Config = handler.Config

	// Option configures a Handler.
	Option = handler.Option

	// ItemProcessor processes one dataset item.
	ItemProcessor = handler.ItemProcessor

	// GormStorage implements Store using GORM.
	GormStorage = storage.GormStorage

	// CronScheduler implements Scheduler on robfig/cron.
	CronScheduler = schedule.CronScheduler

	// Schedule computes the next firing time of a recurring trigger.
	Schedule = schedule.Schedule
)

// Status constants
const (
	StatusQueued     = core.StatusQueued
	StatusProcessing = core.StatusProcessing
	StatusCompleted  = core.StatusCompleted
	StatusFailed     = core.StatusFailed
)

// Order constants
const (
	OrderAsc  = core.OrderAsc
	OrderDesc = core.OrderDesc
)

// Default values
const (
	DefaultDataKey             = core.DefaultDataKey
	DefaultTimeLimit           = handler.DefaultTimeLimit
	DefaultLockTTL             = handler.DefaultLockTTL
	DefaultHealthCheckInterval = handler.DefaultHealthCheckInterval
	DefaultMemoryFraction      = memlimit.DefaultFraction
	UnlimitedMemory            = memlimit.Unlimited
)

// Security limits
const (
	MaxIdentifierLength   = security.MaxIdentifierLength
	MaxItemsPerBatch      = security.MaxItemsPerBatch
	MaxErrorMessageLength = security.MaxErrorMessageLength
)

// Error variables
var (
	ErrJobNotFound       = core.ErrJobNotFound
	ErrJobTerminal       = core.ErrJobTerminal
	ErrInvalidOrder      = core.ErrInvalidOrder
	ErrProcessRunning    = core.ErrProcessRunning
	ErrDataKeyNotSet     = core.ErrDataKeyNotSet
	ErrDataNotSequence   = core.ErrDataNotSequence
	ErrInvalidIdentifier = core.ErrInvalidIdentifier
	ErrInvalidConfig     = core.ErrInvalidConfig
)

// New creates a handler from explicit collaborators.
func New(cfg Config, process ItemProcessor, opts ...Option) (*Handler, error) {
	return handler.New(cfg, process, opts...)
}

// NewHandler creates a handler backed by db: jobs and the process lock are
// stored through GORM and continuations run in-process. Tables are migrated.
// Later opts override these defaults.
func NewHandler(ctx context.Context, db *gorm.DB, cfg Config, process ItemProcessor, opts ...Option) (*Handler, error) {
	store, err := storage.NewGormStorageWithPool(db)
	if err != nil {
		return nil, fmt.Errorf("jobs: configure pool: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("jobs: migrate jobs: %w", err)
	}
	locker := lock.NewGormLocker(db)
	if err := locker.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("jobs: migrate locks: %w", err)
	}

	base := []Option{handler.WithStore(store), handler.WithLocker(locker)}
	return handler.New(cfg, process, append(base, opts...)...)
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// NewCronScheduler creates a started health-check scheduler.
func NewCronScheduler() *CronScheduler {
	s := schedule.NewCronScheduler()
	s.Start()
	return s
}

// ParseMemory converts a human-readable size such as "128M" to bytes.
func ParseMemory(s string) (int64, error) {
	return memlimit.ParseBytes(s)
}

// Handler options

// WithStore sets the job store.
func WithStore(s Store) Option { return handler.WithStore(s) }

// WithLocker sets the process lock implementation.
func WithLocker(l Locker) Option { return handler.WithLocker(l) }

// WithDispatcher sets how continuations are fired.
func WithDispatcher(d Dispatcher) Option { return handler.WithDispatcher(d) }

// WithScheduler sets where the health-check is registered.
func WithScheduler(s Scheduler) Option { return handler.WithScheduler(s) }

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option { return handler.WithObserver(o) }

// WithTimeExceeded overrides the time budget decision.
func WithTimeExceeded(fn func(exceeded bool) bool) Option {
	return handler.WithTimeExceeded(fn)
}

// WithMemoryExceeded overrides the memory budget decision.
func WithMemoryExceeded(fn func(exceeded bool) bool) Option {
	return handler.WithMemoryExceeded(fn)
}

// Every returns a schedule firing at a fixed interval.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Typed adapts a processor of concrete item type T.
func Typed[T any](fn func(ctx context.Context, item T, job *Job) error) ItemProcessor {
	return handler.Typed(fn)
}
