// Package transport exposes a job handler over HTTP.
//
// Routes:
//
//	POST /{identifier}/handle   continuation endpoint, guarded by X-Dispatch-Token
//	POST /jobs                  create a job from a JSON object and dispatch
//	GET  /jobs/{id}             fetch one job
//	GET  /jobs                  list jobs, filtered by ?status=a,b&order=ASC&orderby=seq
//
// Usage:
//
//	mux.Handle("/", transport.Handler(h, transport.WithToken(secret)))
package transport
