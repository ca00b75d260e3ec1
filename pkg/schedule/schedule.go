package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule defines when a trigger should fire next. It is satisfied by
// cron.Schedule.
type Schedule interface {
	Next(from time.Time) time.Time
}

// everySchedule fires at fixed intervals.
type everySchedule struct {
	interval time.Duration
}

// Every creates a schedule that fires at fixed intervals.
func Every(d time.Duration) Schedule {
	return &everySchedule{interval: d}
}

func (s *everySchedule) Next(from time.Time) time.Time {
	return from.Add(s.interval)
}

// delayedSchedule holds back the first firing until a fixed time.
type delayedSchedule struct {
	first time.Time
	then  Schedule
}

// StartingAt fires first at the given time, then follows sched.
func StartingAt(first time.Time, sched Schedule) Schedule {
	return &delayedSchedule{first: first, then: sched}
}

func (s *delayedSchedule) Next(from time.Time) time.Time {
	if from.Before(s.first) {
		return s.first
	}
	return s.then.Next(from)
}

// cronSchedule wraps a cron expression.
type cronSchedule struct {
	schedule cron.Schedule
}

// ParseCron creates a schedule from a five-field cron expression.
func ParseCron(expr string) (Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronSchedule{schedule: schedule}, nil
}

func (s *cronSchedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}
