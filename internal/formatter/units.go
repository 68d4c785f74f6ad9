package formatter

import (
	"fmt"
	"strings"

	"github.com/desertthunder/ytq/internal/models"
)

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// FormatBytes renders n with a binary unit ("1.5 MiB"). Non-positive sizes render as "?".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "?"
	}
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}

// FormatSpeed renders bytes per second, or "--" when unknown.
func FormatSpeed(bps float64) string {
	if bps < 0 {
		return "--"
	}
	if bps < 1 {
		return "0 B/s"
	}
	return FormatBytes(int64(bps)) + "/s"
}

// FormatETA renders seconds as m:ss or h:mm:ss, or "--:--" when unknown.
func FormatETA(seconds int) string {
	if seconds < 0 {
		return "--:--"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatPercent renders a 0..1 fraction as a percentage.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// FormatEvent renders ev as a single status line for terminal output.
func FormatEvent(ev models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", shortID(ev.JobID), ev.Status)

	switch ev.Status {
	case models.StatusDownloading:
		if ev.ItemCount > 0 {
			fmt.Fprintf(&b, " %d/%d", ev.ItemIndex, ev.ItemCount)
		}
		if ev.ItemName != "" {
			fmt.Fprintf(&b, " %s", ev.ItemName)
		}
		fmt.Fprintf(&b, " %s of %s at %s, ETA %s",
			FormatPercent(ev.Percent), FormatBytes(ev.Total), FormatSpeed(ev.Speed), FormatETA(ev.ETA))
	case models.StatusProcessing:
		if ev.ItemCount > 0 {
			fmt.Fprintf(&b, " %d/%d", ev.ItemIndex, ev.ItemCount)
		}
		if ev.ItemName != "" {
			fmt.Fprintf(&b, " %s", ev.ItemName)
		}
	case models.StatusError:
		fmt.Fprintf(&b, ": %s", ev.Detail)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
