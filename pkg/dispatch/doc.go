// Package dispatch provides async continuations implementing core.Dispatcher.
//
// This package includes:
//   - LocalDispatcher: starts the next invocation in a goroutine
//   - HTTPDispatcher: posts to the service's own continuation endpoint,
//     retrying transient failures with exponential backoff
//
// Dispatch never blocks on the invocation it triggers.
package dispatch
