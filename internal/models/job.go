package models

import (
	"strings"
	"time"
)

// JobRequest is what a caller supplies to start a job.
type JobRequest struct {
	SourceLocator   string        `json:"source_locator"`
	Destination     string        `json:"destination"`
	ItemSelection   ItemSelection `json:"item_selection,omitempty"`
	FormatSpec      string        `json:"format_spec"`
	SaveExtraAssets bool          `json:"save_extra_assets"`
}

// Job is one queued or running batch download.
type Job struct {
	ID              string        `json:"id"`
	SourceLocator   string        `json:"source_locator"`
	Destination     string        `json:"destination"`
	ItemSelection   ItemSelection `json:"item_selection,omitempty"`
	FormatSpec      string        `json:"format_spec"`
	SaveExtraAssets bool          `json:"save_extra_assets"`
	Status          Status        `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ErrorDetail     string        `json:"error_detail,omitempty"`
	Title           string        `json:"title,omitempty"`
	ItemCount       int           `json:"item_count,omitempty"`
}

// NewJob builds a job in the started state from req.
func NewJob(id string, req JobRequest, now time.Time) *Job {
	return &Job{
		ID:              id,
		SourceLocator:   strings.TrimSpace(req.SourceLocator),
		Destination:     req.Destination,
		ItemSelection:   req.ItemSelection,
		FormatSpec:      req.FormatSpec,
		SaveExtraAssets: req.SaveExtraAssets,
		Status:          StatusStarted,
		CreatedAt:       now,
	}
}

// DisplayTitle returns the playlist title when known, otherwise the source locator.
func (j *Job) DisplayTitle() string {
	if j.Title != "" {
		return j.Title
	}
	return j.SourceLocator
}

// HistoryRecord projects the job onto its persisted form.
func (j *Job) HistoryRecord() HistoryRecord {
	return HistoryRecord{
		ID:            j.ID,
		SourceLocator: j.SourceLocator,
		Destination:   j.Destination,
		FormatSpec:    j.FormatSpec,
		ItemSelection: j.ItemSelection.EngineArg(),
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.CreatedAt,
		Status:        j.Status,
		Title:         j.Title,
		ItemCount:     j.ItemCount,
		ErrorDetail:   j.ErrorDetail,
	}
}
