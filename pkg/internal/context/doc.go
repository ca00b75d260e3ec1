// Package context provides internal context helpers for job execution.
//
// This package is internal and should not be imported directly.
// It provides context value types for:
//   - Job context: the in-flight job and the item being processed
//   - Actor: the identity recorded as created_by on new jobs
package context
