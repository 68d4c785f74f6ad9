// Package server exposes the download orchestrator over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] patterns, so routes carry their method ("POST /jobs").
//
// # Job API
//
// [JobsHandler] serves the job control routes:
//
//	POST /jobs                  start a job, returns {"id": ...}
//	GET  /jobs                  list active jobs
//	GET  /jobs/{id}             one active job
//	POST /jobs/{id}/pause       request pause
//	POST /jobs/{id}/resume      request resume
//	POST /jobs/{id}/stop        request stop
//	GET  /history               ledger records, newest first (?status=, ?limit=)
//	GET  /events                status events as server-sent events (?job=)
//
// Errors are JSON objects with an "error" field. Invalid input maps to 400, unknown jobs to 404.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
