package tasks

import (
	"sync/atomic"
	"time"
)

// speedWindowSize is the number of recent non-zero speed readings averaged into the reported speed.
const speedWindowSize = 10

// controlState carries the signals between control calls and a job's progress hook.
//
// The flags are written by control calls and read by the hook. samples belongs to the hook alone.
type controlState struct {
	cancelRequested atomic.Bool
	pauseRequested  atomic.Bool
	wake            chan struct{}
	samples         SampleState
}

func newControlState() *controlState {
	return &controlState{wake: make(chan struct{}, 1)}
}

func (c *controlState) cancelled() bool {
	return c.cancelRequested.Load()
}

func (c *controlState) paused() bool {
	return c.pauseRequested.Load()
}

// requestPause sets the pause flag unless the job is being cancelled.
func (c *controlState) requestPause() {
	if c.cancelled() {
		return
	}
	c.pauseRequested.Store(true)
}

// requestResume clears the pause flag and wakes a waiting hook.
func (c *controlState) requestResume() {
	if c.cancelled() {
		return
	}
	c.pauseRequested.Store(false)
	c.signal()
}

// requestStop sets the cancel flag before clearing pause, so a hook leaving its pause loop always sees the cancel.
func (c *controlState) requestStop() {
	c.cancelRequested.Store(true)
	c.pauseRequested.Store(false)
	c.signal()
}

func (c *controlState) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SampleState is the rolling state the aggregator keeps per job.
type SampleState struct {
	speeds         []float64
	lastAt         time.Time
	lastDownloaded int64
	lastItem       int
	observed       bool
}

// push appends a speed reading, evicting the oldest beyond the window size.
func (s *SampleState) push(speed float64) {
	if len(s.speeds) == speedWindowSize {
		copy(s.speeds, s.speeds[1:])
		s.speeds = s.speeds[:speedWindowSize-1]
	}
	s.speeds = append(s.speeds, speed)
}

// Len returns the number of readings in the window.
func (s *SampleState) Len() int {
	return len(s.speeds)
}

// Mean returns the average of the window, or -1 when it is empty.
func (s *SampleState) Mean() float64 {
	if len(s.speeds) == 0 {
		return -1
	}

	var sum float64
	for _, v := range s.speeds {
		sum += v
	}
	return sum / float64(len(s.speeds))
}

// derivedSpeed estimates bytes per second from the previous sample of the same item, or returns 0.
func (s *SampleState) derivedSpeed(item int, downloaded int64, now time.Time) float64 {
	if !s.observed || s.lastItem != item || downloaded <= s.lastDownloaded {
		return 0
	}
	elapsed := now.Sub(s.lastAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(downloaded-s.lastDownloaded) / elapsed
}

func (s *SampleState) observe(item int, downloaded int64, now time.Time) {
	s.lastItem = item
	s.lastDownloaded = downloaded
	s.lastAt = now
	s.observed = true
}
