package tasks

import (
	"math"
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/services"
)

// Aggregate turns a raw downloading report into a normalized event, updating state.
//
// Speed is the mean of the last [speedWindowSize] non-zero readings and -1 until there is one. When the engine
// reports no speed, one is derived from the byte delta since the previous report for the same item.
// Percent is downloaded over max(total, 1), clamped to [0, 1]. ETA is the engine's when known, otherwise derived
// from the remaining bytes and the smoothed speed, otherwise -1.
//
// The returned event has no JobID.
func Aggregate(raw services.Progress, state *SampleState, now time.Time) models.Event {
	speed := raw.Speed
	if speed <= 0 {
		speed = state.derivedSpeed(raw.ItemIndex, raw.DownloadedBytes, now)
	}
	if speed > 0 && !math.IsInf(speed, 0) && !math.IsNaN(speed) {
		state.push(speed)
	}
	state.observe(raw.ItemIndex, raw.DownloadedBytes, now)

	total := raw.Total()
	ev := models.Event{
		Status:      models.StatusDownloading,
		ItemName:    raw.ItemName(),
		Percent:     percentOf(raw.DownloadedBytes, total),
		PercentText: raw.PercentText,
		Speed:       state.Mean(),
		ETA:         -1,
		Downloaded:  raw.DownloadedBytes,
		Total:       total,
		ItemIndex:   raw.ItemIndex,
		ItemCount:   raw.ItemCount,
		At:          now,
	}

	switch {
	case raw.ETA >= 0:
		ev.ETA = raw.ETA
	case total > 0 && ev.Speed > 0:
		remaining := max(total-raw.DownloadedBytes, 0)
		ev.ETA = int(math.Ceil(float64(remaining) / ev.Speed))
	}
	return ev
}

func percentOf(downloaded, total int64) float64 {
	p := float64(downloaded) / float64(max(total, 1))
	return min(max(p, 0), 1)
}
