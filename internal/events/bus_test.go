package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishStampsAndFansOut(t *testing.T) {
	bus := NewBus()
	var a, b []Event
	bus.Subscribe(func(ev Event) { a = append(a, ev) })
	bus.Subscribe(func(ev Event) { b = append(b, ev) })

	bus.Publish(
		Event{Kind: ScoreUpdated, Module: "security", Value: 87.5},
		Event{Kind: AlertRaised, Module: "homes", EntityID: "H-5004", Condition: "gas", Severity: "Critical"},
	)

	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.NotEqual(t, uuid.Nil, a[0].ID)
	assert.False(t, a[0].At.IsZero())
	assert.Equal(t, a[0].ID, b[0].ID, "every subscriber sees the same event")
	assert.NotEqual(t, a[0].ID, a[1].ID)
	assert.Equal(t, "H-5004", a[1].EntityID)
}

func TestPublishKeepsProvidedFields(t *testing.T) {
	bus := NewBus()
	var got Event
	bus.Subscribe(func(ev Event) { got = ev })

	id := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bus.Publish(Event{ID: id, At: at, Kind: SampleAppended, Series: "risk", Value: 12})
	assert.Equal(t, id, got.ID)
	assert.Equal(t, at, got.At)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	n := 0
	cancel := bus.Subscribe(func(Event) { n++ })
	bus.Publish(Event{Kind: ScoreUpdated})
	cancel()
	cancel()
	bus.Publish(Event{Kind: ScoreUpdated})
	assert.Equal(t, 1, n)
}

func TestChannelDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Channel(2)
	defer cancel()

	bus.Publish(Event{Value: 1}, Event{Value: 2}, Event{Value: 3})
	require.Len(t, ch, 2)
	assert.Equal(t, 1.0, (<-ch).Value)
	assert.Equal(t, 2.0, (<-ch).Value)
}
