package models

// Status is a job's lifecycle state.
type Status string

const (
	// StatusStarted means the job was accepted and its engine run is being scheduled
	StatusStarted Status = "started"

	// StatusDownloading means the engine is fetching an item
	StatusDownloading Status = "downloading"

	// StatusProcessing is the post-download sub-phase of an item (muxing, conversion)
	StatusProcessing Status = "processing"

	// StatusPaused means the progress hook is holding the engine
	StatusPaused Status = "paused"

	// StatusStopped means the job was cancelled by the caller
	StatusStopped Status = "stopped"

	// StatusCompleted means the engine finished every selected item
	StatusCompleted Status = "completed"

	// StatusError means the engine failed for a reason other than cancellation
	StatusError Status = "error"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether s is one of stopped, completed or error.
func (s Status) IsTerminal() bool {
	return s == StatusStopped || s == StatusCompleted || s == StatusError
}

// IsActive reports whether s is a known non-terminal status.
func (s Status) IsActive() bool {
	switch s {
	case StatusStarted, StatusDownloading, StatusProcessing, StatusPaused:
		return true
	}
	return false
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool {
	return s.IsActive() || s.IsTerminal()
}

// CanTransition reports whether a job may move from s to next.
//
// Repeating the current non-terminal status is allowed (a stream of downloading events).
// Terminal statuses are final.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() || !next.IsValid() {
		return false
	}
	if next.IsTerminal() {
		return true
	}

	switch s {
	case StatusStarted:
		return next != StatusStarted
	case StatusDownloading:
		return next == StatusDownloading || next == StatusProcessing || next == StatusPaused
	case StatusProcessing:
		return next == StatusProcessing || next == StatusDownloading || next == StatusPaused
	case StatusPaused:
		return next == StatusPaused || next == StatusDownloading || next == StatusProcessing
	}
	return false
}

// ParseStatus converts a persisted status string, reporting whether it is known.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.IsValid()
}
