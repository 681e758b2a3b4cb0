package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/citypulse/internal/events"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming("homes.sensors", 2*time.Millisecond)
	c.RecordTiming("homes.sensors", 4*time.Millisecond)
	c.RecordTiming("city", time.Millisecond)

	snap := c.Snapshot()
	require.Len(t, snap.Ticks, 2)
	assert.Equal(t, "city", snap.Ticks[0].Name)

	h := snap.Ticks[1]
	assert.Equal(t, int64(2), h.Count)
	assert.InDelta(t, 6.0, h.TotalTimeMs, 1e-9)
	assert.InDelta(t, 3.0, h.AvgTimeMs, 1e-9)
	assert.InDelta(t, 2.0, h.MinTimeMs, 1e-9)
	assert.InDelta(t, 4.0, h.MaxTimeMs, 1e-9)
}

func TestRecordEventViaBus(t *testing.T) {
	c := NewCollector()
	bus := events.NewBus()
	bus.Subscribe(c.RecordEvent)

	bus.Publish(
		events.Event{Kind: events.AlertRaised, Module: "homes"},
		events.Event{Kind: events.ScoreUpdated, Module: "security"},
		events.Event{Kind: events.ScoreUpdated, Module: "security"},
	)

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.Events[events.AlertRaised])
	assert.Equal(t, int64(2), snap.Events[events.ScoreUpdated])
	assert.Equal(t, int64(2), snap.Modules["security"])
	assert.Empty(t, snap.Ticks)
}
