package testing

import (
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytq/internal/models"
)

const pollInterval = 2 * time.Millisecond

// EventRecorder is a status sink that keeps every event it receives.
type EventRecorder struct {
	mu     sync.Mutex
	events []models.Event
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Record appends ev. Its signature matches a status sink.
func (r *EventRecorder) Record(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of every recorded event.
func (r *EventRecorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// For returns the recorded events of one job.
func (r *EventRecorder) For(jobID string) []models.Event {
	var out []models.Event
	for _, ev := range r.Events() {
		if ev.JobID == jobID {
			out = append(out, ev)
		}
	}
	return out
}

// Statuses returns the status sequence of one job.
func (r *EventRecorder) Statuses(jobID string) []models.Status {
	var out []models.Status
	for _, ev := range r.For(jobID) {
		out = append(out, ev.Status)
	}
	return out
}

// WaitUntil polls until cond holds for the events of jobID, failing the test after timeout.
func (r *EventRecorder) WaitUntil(t *testing.T, jobID string, timeout time.Duration, cond func([]models.Event) bool) []models.Event {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		events := r.For(jobID)
		if cond(events) {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %v waiting on job %s, statuses so far: %v", timeout, jobID, r.Statuses(jobID))
			return nil
		}
		time.Sleep(pollInterval)
	}
}

// WaitFor blocks until jobID has emitted an event with status and returns the first such event.
func (r *EventRecorder) WaitFor(t *testing.T, jobID string, status models.Status, timeout time.Duration) models.Event {
	t.Helper()

	var found models.Event
	r.WaitUntil(t, jobID, timeout, func(events []models.Event) bool {
		for _, ev := range events {
			if ev.Status == status {
				found = ev
				return true
			}
		}
		return false
	})
	return found
}

// WaitTerminal blocks until jobID has emitted a terminal event and returns it.
func (r *EventRecorder) WaitTerminal(t *testing.T, jobID string, timeout time.Duration) models.Event {
	t.Helper()

	var found models.Event
	r.WaitUntil(t, jobID, timeout, func(events []models.Event) bool {
		for _, ev := range events {
			if ev.IsTerminal() {
				found = ev
				return true
			}
		}
		return false
	})
	return found
}
