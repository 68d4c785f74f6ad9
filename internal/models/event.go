package models

import "time"

// Event is a normalized status event delivered to a status sink.
//
// Lifecycle events (started, stopped, completed, error) only carry JobID, Status, Detail and At.
// Progress events carry item metrics; unknown metrics are reported as -1 (Speed, ETA) or 0 (Total).
type Event struct {
	JobID       string    `json:"job_id"`
	Status      Status    `json:"status"`
	ItemName    string    `json:"item_name,omitempty"`
	Percent     float64   `json:"percent"`
	PercentText string    `json:"percent_text,omitempty"`
	Speed       float64   `json:"speed"`
	ETA         int       `json:"eta"`
	Downloaded  int64     `json:"downloaded"`
	Total       int64     `json:"total"`
	ItemIndex   int       `json:"item_index,omitempty"`
	ItemCount   int       `json:"item_count,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

// NewStatusEvent returns a lifecycle event with no item metrics.
func NewStatusEvent(jobID string, status Status, detail string, at time.Time) Event {
	return Event{
		JobID:  jobID,
		Status: status,
		Speed:  -1,
		ETA:    -1,
		Detail: detail,
		At:     at,
	}
}

// IsTerminal reports whether the event ends its job.
func (e Event) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// SpeedKnown reports whether the event carries a smoothed speed.
func (e Event) SpeedKnown() bool {
	return e.Speed >= 0
}

// ETAKnown reports whether the event carries an ETA.
func (e Event) ETAKnown() bool {
	return e.ETA >= 0
}
