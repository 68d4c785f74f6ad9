package tasks

import (
	"sync"
	"time"

	"github.com/desertthunder/ytq/internal/models"
)

const (
	defaultFanoutBuffer = 64
	terminalSendTimeout = 2 * time.Second
)

// Fanout delivers each published event to every subscriber.
//
// A subscriber whose buffer is full misses progress events. Terminal events wait for room, up to a shared
// timeout per publish, so a busy reader still learns how a job ended.
type Fanout struct {
	mu           sync.RWMutex
	subs         map[int]chan models.Event
	next         int
	buffer       int
	closed       bool
	terminalWait time.Duration
}

// NewFanout creates a fan-out whose subscriber channels hold buffer events.
func NewFanout(buffer int) *Fanout {
	if buffer <= 0 {
		buffer = defaultFanoutBuffer
	}
	return &Fanout{
		subs:         make(map[int]chan models.Event),
		buffer:       buffer,
		terminalWait: terminalSendTimeout,
	}
}

// Subscribe returns a channel of future events and a function that unsubscribes and closes it.
func (f *Fanout) Subscribe() (<-chan models.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan models.Event, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.next
	f.next++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
}

// Publish sends ev to every subscriber. Its signature matches [Sink].
func (f *Fanout) Publish(ev models.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var (
		deadline <-chan time.Time
		expired  bool
	)
	for _, ch := range f.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		if !ev.Status.IsTerminal() || expired {
			continue
		}

		if deadline == nil {
			timer := time.NewTimer(f.terminalWait)
			defer timer.Stop()
			deadline = timer.C
		}
		select {
		case ch <- ev:
		case <-deadline:
			expired = true
		}
	}
}

// Len returns the number of subscribers.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Close closes every subscriber channel. Later subscribers receive a closed channel.
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
	f.closed = true
}

// Tee returns a sink that calls each non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	return func(ev models.Event) {
		for _, s := range sinks {
			if s != nil {
				s(ev)
			}
		}
	}
}
