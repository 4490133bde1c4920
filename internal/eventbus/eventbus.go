package eventbus

import (
	"sync"

	"github.com/statkeeper/statkeeper/internal/stats"
)

const defaultBufSize = 256

// EventBus implements fan-out pub/sub for stat events.
// Each subscriber gets a buffered channel. If a subscriber
// is slow, events are dropped for that subscriber (the
// dashboard can query the store for current totals).
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *stats.Event
	bufSize     int
}

func New(bufSize int) *EventBus {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	return &EventBus{
		subscribers: make(map[string]chan *stats.Event),
		bufSize:     bufSize,
	}
}

// Subscribe creates a new subscription. Returns the channel and
// an unsubscribe function that must be called when done.
// Subscribing twice with the same id replaces the earlier channel.
func (eb *EventBus) Subscribe(id string) (<-chan *stats.Event, func()) {
	ch := make(chan *stats.Event, eb.bufSize)

	eb.mu.Lock()
	if old, ok := eb.subscribers[id]; ok {
		close(old)
	}
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			eb.mu.Lock()
			if eb.subscribers[id] == ch {
				delete(eb.subscribers, id)
				close(ch)
			}
			eb.mu.Unlock()
		})
	}
	return ch, unsub
}

// Publish sends an event to all subscribers. Non-blocking:
// slow subscribers will miss events.
func (eb *EventBus) Publish(ev *stats.Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}
