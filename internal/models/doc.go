// Package models defines the domain types shared by the orchestrator, the history ledger and the presentation layers.
//
//   - [Job] : one queued or running batch download and its lifecycle [Status]
//   - [JobRequest] : the caller-facing request used to start a [Job]
//   - [ItemSelection] : 0-based item indices, rendered in the engine's 1-based syntax
//   - [HistoryRecord] : the persisted projection of a [Job]
//   - [Event] : a normalized status event delivered to status sinks
//
// [Status] encodes the lifecycle state machine; [Status.CanTransition] is the single source of truth for legal edges.
package models
