package tasks

import (
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/services"
)

// Sink receives every event a job emits, on that job's goroutine.
//
// Implementations must not block for long and must not panic.
type Sink func(models.Event)

func startedEvent(jobID string, at time.Time) models.Event {
	return models.NewStatusEvent(jobID, models.StatusStarted, "", at)
}

func pausedEvent(jobID string, at time.Time) models.Event {
	return models.NewStatusEvent(jobID, models.StatusPaused, "", at)
}

// processingEvent marks the end of an item's transfer; the engine is now post-processing it.
func processingEvent(jobID string, raw services.Progress, at time.Time) models.Event {
	ev := models.NewStatusEvent(jobID, models.StatusProcessing, "", at)
	ev.ItemName = raw.ItemName()
	ev.Percent = 1
	ev.PercentText = "100%"
	ev.Downloaded = raw.DownloadedBytes
	ev.Total = raw.Total()
	ev.ItemIndex = raw.ItemIndex
	ev.ItemCount = raw.ItemCount
	return ev
}

func terminalEvent(jobID string, status models.Status, detail string, at time.Time) models.Event {
	return models.NewStatusEvent(jobID, status, detail, at)
}
