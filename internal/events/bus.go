// Package events distributes task status transitions to live subscribers
// and to an MQTT broker.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snarg/mallok/internal/task"
)

// Sink receives status events. Implementations must not block.
type Sink interface {
	Publish(ev task.StatusEvent)
}

// Fanout returns a Sink that forwards to every non-nil sink.
func Fanout(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) Publish(ev task.StatusEvent) {
	for _, s := range m {
		s.Publish(ev)
	}
}

// Event is one serialized status event as delivered to stream subscribers.
type Event struct {
	ID     string
	UserID string
	Data   json.RawMessage
}

// Bus provides pub-sub distribution of status events, scoped per user.
// It keeps a ring buffer for replay on reconnect.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
	seq         atomic.Uint64

	ring     []Event
	ringSize int
	ringHead int
	ringMu   sync.RWMutex

	now func() time.Time
}

type subscriber struct {
	ch     chan Event
	userID string
}

// NewBus creates an event bus with the given ring buffer size.
func NewBus(ringSize int) *Bus {
	if ringSize < 1 {
		ringSize = 1
	}
	return &Bus{
		subscribers: make(map[uint64]subscriber),
		ring:        make([]Event, ringSize),
		ringSize:    ringSize,
		now:         time.Now,
	}
}

// Subscribe registers a subscriber for userID's events and returns a channel
// and cancel function.
func (b *Bus) Subscribe(userID string) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subscribers[id] = subscriber{ch: ch, userID: userID}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// ReplaySince returns userID's buffered events after lastEventID, oldest
// first. An unknown id replays nothing.
func (b *Bus) ReplaySince(lastEventID, userID string) []Event {
	b.ringMu.RLock()
	defer b.ringMu.RUnlock()

	var events []Event
	found := lastEventID == ""
	for i := 0; i < b.ringSize; i++ {
		e := b.ring[(b.ringHead+i)%b.ringSize]
		if e.ID == "" {
			continue
		}
		if !found {
			if e.ID == lastEventID {
				found = true
			}
			continue
		}
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	return events
}

// Publish sends ev to the owner's subscribers and adds it to the ring buffer.
func (b *Bus) Publish(ev task.StatusEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	seq := b.seq.Add(1)
	event := Event{
		ID:     fmt.Sprintf("%d-%d", b.now().UnixMilli(), seq),
		UserID: ev.UserID,
		Data:   data,
	}

	b.ringMu.Lock()
	b.ring[b.ringHead] = event
	b.ringHead = (b.ringHead + 1) % b.ringSize
	b.ringMu.Unlock()

	b.mu.RLock()
	for _, sub := range b.subscribers {
		if sub.userID != event.UserID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Drop if subscriber is slow
		}
	}
	b.mu.RUnlock()
}

// Subscribers returns the number of connected subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
