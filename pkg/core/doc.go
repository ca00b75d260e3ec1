// Package core provides the fundamental types and interfaces for the jobs package.
//
// This package contains:
//   - The Job model and its flat JSON serialization
//   - Store, Locker, Dispatcher and Scheduler collaborator interfaces
//   - Event types and the Observer interface for lifecycle notifications
//   - Error types for dataset validation and item faults
//
// Most users should import the root package github.com/jdziat/resumable-jobs
// instead of this package directly.
package core
