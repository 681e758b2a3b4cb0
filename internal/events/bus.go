// Package events carries engine notifications to presentation adapters.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an event type.
type Kind string

const (
	AlertRaised    Kind = "alert_raised"
	AlertCleared   Kind = "alert_cleared"
	ScoreUpdated   Kind = "score_updated"
	SampleAppended Kind = "sample_appended"
)

// Event is a single engine notification. Fields not relevant to the kind
// stay empty.
type Event struct {
	ID        uuid.UUID
	Kind      Kind
	Module    string
	EntityID  string
	Condition string
	Severity  string
	Series    string
	Value     float64
	At        time.Time
}

// Handler receives published events. Handlers run on the publisher's
// goroutine and must not block.
type Handler func(Event)

// Bus is a synchronous fan-out of events to subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish stamps missing ids and timestamps and delivers each event to every
// subscriber.
func (b *Bus) Publish(evs ...Event) {
	if len(evs) == 0 {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, ev := range evs {
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if ev.At.IsZero() {
			ev.At = time.Now()
		}
		for _, h := range handlers {
			h(ev)
		}
	}
}

// Channel subscribes a buffered channel. Events are dropped when the buffer
// is full so a slow reader never stalls a tick. Call the returned function to
// unsubscribe; the channel is not closed.
func (b *Bus) Channel(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	cancel := b.Subscribe(func(ev Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	return ch, cancel
}
