package services

import "context"

// Progress phases reported by an [Engine].
const (
	PhaseDownloading = "downloading"
	PhaseFinished    = "finished"
	PhaseError       = "error"
)

// Engine fetches the items of a playlist, reporting progress through a hook.
type Engine interface {
	// Download runs the whole request, invoking hook for every progress report.
	//
	// A non-nil error from hook aborts the download; the returned error wraps it.
	Download(ctx context.Context, req DownloadRequest, hook ProgressHook) error
}

// ProgressHook receives raw progress reports on the engine's goroutine.
//
// Blocking inside the hook blocks the engine.
type ProgressHook func(Progress) error

// DownloadRequest describes one engine run.
type DownloadRequest struct {
	SourceLocator  string
	FormatSpec     string
	OutputTemplate string
	ItemSelection  string // 1-based "1,3,4"; empty means every item
	WriteThumbnail bool
}

// Progress is one raw progress report for the item currently being fetched.
//
// Zero byte counts and a zero Speed mean unknown; ETA is -1 when unknown.
type Progress struct {
	Status             string
	Filename           string
	Title              string
	PlaylistTitle      string
	DownloadedBytes    int64
	TotalBytes         int64
	TotalBytesEstimate int64
	Speed              float64
	ETA                int
	PercentText        string
	ItemIndex          int // 1-based position within the playlist, 0 when unknown
	ItemCount          int
}

// Total returns the exact total when known, otherwise the estimate.
func (p Progress) Total() int64 {
	if p.TotalBytes > 0 {
		return p.TotalBytes
	}
	return p.TotalBytesEstimate
}

// ItemName returns the best human readable name for the item.
func (p Progress) ItemName() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Filename
}
