package models

import "testing"

func TestStatus(t *testing.T) {
	t.Run("IsTerminal", func(t *testing.T) {
		terminal := []Status{StatusStopped, StatusCompleted, StatusError}
		active := []Status{StatusStarted, StatusDownloading, StatusProcessing, StatusPaused}

		for _, s := range terminal {
			if !s.IsTerminal() || s.IsActive() {
				t.Errorf("%s should be terminal and not active", s)
			}
		}
		for _, s := range active {
			if s.IsTerminal() || !s.IsActive() {
				t.Errorf("%s should be active and not terminal", s)
			}
		}
		if Status("bogus").IsValid() {
			t.Error("unknown status should not be valid")
		}
	})

	t.Run("CanTransition", func(t *testing.T) {
		tests := []struct {
			from Status
			to   Status
			want bool
		}{
			{StatusStarted, StatusDownloading, true},
			{StatusStarted, StatusPaused, true},
			{StatusStarted, StatusProcessing, true},
			{StatusStarted, StatusStarted, false},
			{StatusStarted, StatusError, true},
			{StatusDownloading, StatusDownloading, true},
			{StatusDownloading, StatusPaused, true},
			{StatusDownloading, StatusProcessing, true},
			{StatusDownloading, StatusStarted, false},
			{StatusDownloading, StatusCompleted, true},
			{StatusDownloading, StatusStopped, true},
			{StatusProcessing, StatusDownloading, true},
			{StatusProcessing, StatusCompleted, true},
			{StatusPaused, StatusDownloading, true},
			{StatusPaused, StatusPaused, true},
			{StatusPaused, StatusStopped, true},
			{StatusPaused, StatusStarted, false},
			{StatusStopped, StatusDownloading, false},
			{StatusStopped, StatusStopped, false},
			{StatusCompleted, StatusError, false},
			{StatusError, StatusCompleted, false},
			{StatusDownloading, Status("bogus"), false},
		}

		for _, tt := range tests {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		}
	})

	t.Run("ParseStatus", func(t *testing.T) {
		if s, ok := ParseStatus("completed"); !ok || s != StatusCompleted {
			t.Errorf("ParseStatus(completed) = %v, %v", s, ok)
		}
		if _, ok := ParseStatus("finished"); ok {
			t.Error("ParseStatus(finished) should not be known")
		}
	})
}
