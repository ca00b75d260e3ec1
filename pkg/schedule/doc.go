// Package schedule provides named recurring triggers for health checks.
//
// This package includes:
//   - Schedule interface and Every, StartingAt and ParseCron schedules
//   - CronScheduler, a core.Scheduler backed by robfig/cron
//
// A job handler arms one trigger per identifier while work is queued and
// removes it once the queue drains.
package schedule
