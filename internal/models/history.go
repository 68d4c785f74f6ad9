package models

import "time"

// HistoryRecord is the persisted projection of a [Job] at its lifecycle checkpoints.
//
// ItemSelection is stored in the engine's 1-based syntax, empty meaning all items.
type HistoryRecord struct {
	ID            string    `json:"id"`
	SourceLocator string    `json:"source_locator"`
	Destination   string    `json:"destination"`
	FormatSpec    string    `json:"format_spec"`
	ItemSelection string    `json:"item_selection,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
	Status        Status    `json:"status"`
	Title         string    `json:"title"`
	ItemCount     int       `json:"item_count"`
	ErrorDetail   string    `json:"error_detail,omitempty"`
}

// DisplayTitle returns the title when known, otherwise the source locator.
func (r HistoryRecord) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.SourceLocator
}

// Finished reports whether the record carries a terminal status.
func (r HistoryRecord) Finished() bool {
	return r.Status.IsTerminal()
}
