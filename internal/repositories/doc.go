// Package repositories implements the job history ledger.
//
// Both backends satisfy [HistoryStore]:
//   - [HistoryLedger] : a JSON array in a single file, rewritten whole on every change through a temp file and rename
//   - [SQLiteLedger] : a history table in SQLite, created by the embedded migrations in the shared package
//
// Writes from jobs that finish at the same time are serialized by a mutex in each backend. Updates always target
// the most recent record with a given id, so a re-used id never rewrites older history.
//
// Loading is best effort. A missing history file is an empty history; an unparsable one is logged and treated as
// empty so a damaged file never keeps the program from starting.
package repositories
