// Package security provides validation, sanitization, and limits for the jobs package.
//
// This package includes:
//   - Validation for handler identifiers and dataset keys
//   - Failure message sanitization before storage
//   - Clamping of the per-invocation item cap
//
// Most users should import the root package github.com/jdziat/resumable-jobs
// which re-exports these functions.
package security
