package recognition

import (
	"sync"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/metrics"
)

// Broadcaster fans recognition events out to listeners and remembers the
// latest one. Slow listeners miss events instead of blocking the loop.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
	last      *Event
}

// NewBroadcaster creates a broadcaster without listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener adds an event listener.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	metrics.SSEListeners.Set(float64(len(b.listeners)))
	return ch
}

// RemoveListener removes an event listener.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			metrics.SSEListeners.Set(float64(len(b.listeners)))
			return
		}
	}
}

// Present sends the event to all listeners.
func (b *Broadcaster) Present(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &event
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Last returns the most recent event.
func (b *Broadcaster) Last() (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.last == nil {
		return Event{}, false
	}
	return *b.last, true
}
