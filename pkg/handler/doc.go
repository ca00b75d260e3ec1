// Package handler implements the resumable job handler.
//
// A Handler owns a queue of jobs namespaced by its identifier. Each job
// carries an ordered dataset; the handler walks that dataset one item at a
// time across many short invocations, persisting progress after every item
// so a later invocation resumes exactly where the previous one stopped.
//
// An invocation (Handle) takes an advisory lock, drains jobs in insertion
// order until the time or memory budget runs out, releases the lock and
// either re-dispatches itself or, when the queue is empty, cancels its
// health-check. Dispatch arms the health-check before firing the
// continuation, so a lost continuation is picked up on the next tick.
//
// Basic usage:
//
//	h, err := handler.New(handler.Config{Identifier: "catalog-sync"},
//		func(ctx context.Context, item any, job *core.Job) error {
//			return syncProduct(ctx, item)
//		},
//		handler.WithStore(store),
//		handler.WithLocker(locker),
//		handler.WithScheduler(scheduler),
//	)
//
//	job, err := h.CreateJob(ctx, map[string]any{"data": productIDs})
//	err = h.Dispatch(ctx)
package handler
