package handler

import (
	"fmt"
	"time"

	"github.com/jdziat/resumable-jobs/pkg/core"
	"github.com/jdziat/resumable-jobs/pkg/memlimit"
	"github.com/jdziat/resumable-jobs/pkg/schedule"
	"github.com/jdziat/resumable-jobs/pkg/security"
)

// Default values.
const (
	DefaultTimeLimit           = 20 * time.Second
	DefaultLockTTL             = 60 * time.Second
	DefaultHealthCheckInterval = 5 * time.Minute
	DefaultActor               = "system"
)

// Config describes one handler instance. Only Identifier is required.
type Config struct {
	// Identifier namespaces stored jobs, the process lock and the health-check.
	Identifier string

	// DataKey is the attribute holding each job's dataset. Default: "data"
	DataKey string

	// TimeLimit bounds one invocation's wall-clock time. Default: 20s
	TimeLimit time.Duration

	// LockTTL is how long the process lock lives without being released. Default: 60s
	LockTTL time.Duration

	// MemoryLimit is a human-readable ceiling such as "512M". Empty uses the
	// runtime's soft limit; "-1" means unlimited.
	MemoryLimit string

	// MemoryFraction of MemoryLimit at which an invocation stops. Default: 0.9
	MemoryFraction float64

	// ItemsPerBatch caps the items one invocation processes for a job. A job
	// stopped by the cap ends the invocation and continues in the next
	// dispatch. Zero means no cap.
	ItemsPerBatch int

	// HealthCheckInterval is the period of the fallback trigger. Default: 5m
	HealthCheckInterval time.Duration

	// HealthCheckCron is a five-field cron expression for the fallback
	// trigger, used instead of HealthCheckInterval when the scheduler
	// supports cron expressions.
	HealthCheckCron string

	// DefaultActor is recorded as created_by when the context names none.
	DefaultActor string
}

func (c Config) withDefaults() Config {
	if c.DataKey == "" {
		c.DataKey = core.DefaultDataKey
	}
	if c.TimeLimit == 0 {
		c.TimeLimit = DefaultTimeLimit
	}
	if c.LockTTL == 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.MemoryFraction == 0 {
		c.MemoryFraction = memlimit.DefaultFraction
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if c.DefaultActor == "" {
		c.DefaultActor = DefaultActor
	}
	c.ItemsPerBatch = security.ClampItemsPerBatch(c.ItemsPerBatch)
	return c
}

// Validate checks a config after defaults are applied.
func (c Config) Validate() error {
	if err := security.ValidateIdentifier(c.Identifier); err != nil {
		return err
	}
	if err := security.ValidateDataKey(c.DataKey); err != nil {
		return err
	}
	if c.TimeLimit < 0 || c.LockTTL < 0 || c.HealthCheckInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", core.ErrInvalidConfig)
	}
	if c.TimeLimit >= c.LockTTL {
		return fmt.Errorf("%w: time limit %s must be shorter than lock ttl %s", core.ErrInvalidConfig, c.TimeLimit, c.LockTTL)
	}
	if c.HealthCheckCron != "" {
		if _, err := schedule.ParseCron(c.HealthCheckCron); err != nil {
			return fmt.Errorf("%w: health-check cron: %w", core.ErrInvalidConfig, err)
		}
	}
	if c.MemoryFraction < 0 || c.MemoryFraction > 1 {
		return fmt.Errorf("%w: memory fraction %v outside (0, 1]", core.ErrInvalidConfig, c.MemoryFraction)
	}
	return nil
}

// LockName returns the name of the process lock.
func (c Config) LockName() string {
	return c.Identifier + "_process_lock"
}

// HealthCheckName returns the name of the recurring health-check.
func (c Config) HealthCheckName() string {
	return c.Identifier + "_cron"
}
