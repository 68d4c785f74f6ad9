// Package tasks runs playlist download jobs and turns engine progress into status events.
//
// # Orchestrator
//
// [Orchestrator] owns the set of active jobs. [Orchestrator.Start] records the job in the history ledger and runs
// the engine on a goroutine of its own, so control calls never wait on download work:
//
//   - [Orchestrator.RequestPause] and [Orchestrator.RequestResume] toggle an atomic flag the progress hook checks
//   - [Orchestrator.RequestStop] sets a cancel flag that only ever goes from false to true
//
// Jobs move through the statuses defined by [models.Status.CanTransition]. Each one ends exactly once in stopped,
// completed or error; the ledger is updated and the job leaves the active map before the terminal event is sent.
// An engine error or panic ends only the job that raised it.
//
// # Progress Hook
//
// The hook the engine calls is the single point where control takes effect. A cancelled job returns
// [shared.ErrCancelled] from the hook, which aborts the engine. A paused job stays inside the hook, emitting a
// throttled paused event, until it is resumed or stopped; the engine makes no progress while the hook holds it.
//
// # Aggregation
//
// [Aggregate] smooths raw engine reports: a window of the last ten non-zero speeds, a percent computed from raw
// byte counts, and an ETA that falls back to remaining bytes over smoothed speed.
//
// # Fan-out
//
// Events go to a single [Sink]. [Fanout] multiplexes that sink to any number of subscribers (HTTP streams, the
// terminal monitor) with non-blocking sends, so a slow reader drops events instead of stalling a job.
package tasks
