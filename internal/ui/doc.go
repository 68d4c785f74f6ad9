// Package ui implements the terminal job monitor using bubbletea's Elm architecture.
//
// The [Model] lists every job it has seen, one row each, with a progress bar, speed and ETA for the running item.
// Status events arrive on a channel (usually a subscription to the orchestrator's fan-out) and are turned into
// messages of the Msg union type, so the orchestrator never blocks on rendering.
//
// Keys: ↑/↓ (or k/j) select a job, a adds a source ("<url> [items]"), p pauses, r resumes, s stops and q quits.
// Quitting requests a stop for every job that is still active.
package ui
