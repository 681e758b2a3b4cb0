package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/registry"
)

func newTestHomes(t *testing.T, draws ...float64) (*Homes, *recorder) {
	t.Helper()
	d, rec := testDeps(draws...)
	h, err := NewHomes(testPolicy(t).Homes, d)
	require.NoError(t, err)
	return h, rec
}

func TestHomesSeeded(t *testing.T) {
	h, _ := newTestHomes(t)

	entries := h.List(HomeQuery{})
	require.Len(t, entries, 8)
	assert.Equal(t, "H-5001", entries[0].ID)
	assert.Equal(t, "H-5008", entries[7].ID)

	tests := []struct {
		id     string
		status models.HomeStatus
		risk   int
	}{
		{"H-5001", models.HomeSafe, 0},
		{"H-5002", models.HomeWarning, 25},
		{"H-5004", models.HomeCritical, 80},
		{"H-5006", models.HomeWarning, 40},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			home, err := h.Home(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.status, home.Status)
			assert.Equal(t, tt.risk, home.Risk)
		})
	}
}

func TestGasAlertRaisedOncePerExcursion(t *testing.T) {
	h, rec := newTestHomes(t)
	gasRaised := func() int { return len(rec.matching(events.AlertRaised, "H-5004", ConditionGas)) }
	gasCleared := func() int { return len(rec.matching(events.AlertCleared, "H-5004", ConditionGas)) }
	setGas := func(v float64) {
		require.NoError(t, h.UpdateHome("H-5004", models.HomeUpdate{Gas: models.Ptr(v)}))
		tick(t, h, "alerts")
	}

	// seeded at 520 ppm
	tick(t, h, "alerts")
	assert.Equal(t, 1, gasRaised())

	for _, v := range []float64{530, 515, 501} {
		setGas(v)
	}
	assert.Equal(t, 1, gasRaised())
	assert.Equal(t, 0, gasCleared())

	setGas(480)
	assert.Equal(t, 1, gasCleared())

	setGas(510)
	assert.Equal(t, 2, gasRaised())
	assert.Equal(t, 1, gasCleared())
}

func TestRemoveUnknownHome(t *testing.T) {
	h, rec := newTestHomes(t)
	before := h.List(HomeQuery{})
	snap := h.Snapshot()

	err := h.RemoveHome("H-9999")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	assert.Equal(t, before, h.List(HomeQuery{}))
	assert.Equal(t, snap.AverageRisk, h.Snapshot().AverageRisk)
	assert.Empty(t, rec.matching(events.ScoreUpdated, "", ""))
}

func TestRemoveHomeForgetsAlerts(t *testing.T) {
	h, rec := newTestHomes(t)
	tick(t, h, "alerts")
	require.NotEmpty(t, rec.matching(events.AlertRaised, "H-5004", ""))

	require.NoError(t, h.RemoveHome("H-5004"))

	assert.Empty(t, rec.matching(events.AlertCleared, "H-5004", ""))
	for _, open := range h.Snapshot().OpenAlerts {
		assert.NotEqual(t, "H-5004", open.EntityID)
	}
	_, err := h.Home("H-5004")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestAddHome(t *testing.T) {
	h, _ := newTestHomes(t)

	_, err := h.AddHome(models.HomeInput{Owner: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	id, err := h.AddHome(models.HomeInput{Owner: "Ana Costa", Address: "12 River Rd", Gas: 9000, Temperature: 21, Humidity: 40})
	require.NoError(t, err)
	assert.Equal(t, "H-5009", id)

	home, err := h.Home(id)
	require.NoError(t, err)
	assert.Equal(t, 800.0, home.Gas, "gas clamps to the sensor range")
	assert.Equal(t, models.HomeCritical, home.Status)

	require.NoError(t, h.RemoveHome(id))
	id, err = h.AddHome(models.HomeInput{Owner: "Ben Ito", Temperature: 21, Humidity: 40})
	require.NoError(t, err)
	assert.Equal(t, "H-5010", id, "ids are never reused")
}

func TestUpdateHome(t *testing.T) {
	h, _ := newTestHomes(t)

	err := h.UpdateHome("H-9999", models.HomeUpdate{Gas: models.Ptr(1.0)})
	assert.ErrorIs(t, err, registry.ErrNotFound)

	err = h.UpdateHome("H-5001", models.HomeUpdate{Owner: models.Ptr("")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, h.UpdateHome("H-5001", models.HomeUpdate{Smoke: models.Ptr(350.0)}))
	home, err := h.Home("H-5001")
	require.NoError(t, err)
	assert.Equal(t, models.HomeCritical, home.Status)
	assert.Equal(t, 30, home.Risk)
}

func TestEmergencyShutdown(t *testing.T) {
	h, rec := newTestHomes(t, 0.9)
	tick(t, h, "alerts")
	require.NotEmpty(t, h.Snapshot().OpenAlerts)
	rec.reset()

	h.EmergencyShutdown()
	assert.True(t, h.Emergency())

	snap := h.Snapshot()
	assert.Empty(t, snap.OpenAlerts)
	assert.Empty(t, rec.matching(events.AlertCleared, "", ""), "shutdown clears silently")

	before := h.List(HomeQuery{})
	for _, e := range before {
		assert.Zero(t, e.Value.Gas)
		assert.Zero(t, e.Value.Smoke)
		assert.Equal(t, models.HomeEmergency, e.Value.Status)
	}

	tick(t, h, "sensors")
	tick(t, h, "alerts")
	assert.Equal(t, before, h.List(HomeQuery{}), "sensor updates stop")
	assert.Empty(t, rec.matching(events.AlertRaised, "", ""))

	h.Resume()
	assert.False(t, h.Emergency())
	home, err := h.Home("H-5004")
	require.NoError(t, err)
	assert.Equal(t, models.HomeSafe, home.Status)
}

func TestSensorWalkStaysInRange(t *testing.T) {
	h, _ := newTestHomes(t, 0.99, 0.97, 0.95)
	for range 100 {
		tick(t, h, "sensors")
	}
	for _, e := range h.List(HomeQuery{}) {
		assert.LessOrEqual(t, e.Value.Gas, 800.0)
		assert.LessOrEqual(t, e.Value.Smoke, 600.0)
		assert.LessOrEqual(t, e.Value.Temperature, 45.0)
		assert.LessOrEqual(t, e.Value.Humidity, 90.0)
		assert.GreaterOrEqual(t, e.Value.Humidity, 30.0)
	}
}

func TestHomeQueries(t *testing.T) {
	h, _ := newTestHomes(t)

	found := h.List(HomeQuery{Search: "ELM"})
	require.Len(t, found, 1)
	assert.Equal(t, "H-5004", found[0].ID)

	assert.Len(t, h.List(HomeQuery{Search: "h-500"}), 8)

	critical := h.List(HomeQuery{Status: models.HomeCritical})
	assert.Equal(t, []string{"H-5004"}, registry.IDs(critical))

	sorted := h.List(HomeQuery{ByRisk: true})
	assert.Equal(t, "H-5004", sorted[0].ID)
	assert.Equal(t, "H-5006", sorted[1].ID)
	assert.Equal(t, "H-5001", h.List(HomeQuery{})[0].ID, "projections never reorder the registry")
}

func TestHomesChart(t *testing.T) {
	h, rec := newTestHomes(t)
	require.Len(t, h.Snapshot().Temperature, 24)

	tick(t, h, "chart")

	snap := h.Snapshot()
	require.Len(t, snap.Temperature, 24)
	assert.InDelta(t, 25.4625, snap.Temperature[23], 1e-9)
	assert.Len(t, rec.matching(events.SampleAppended, "", ""), 2)
}

func TestHomesSnapshotCounts(t *testing.T) {
	h, _ := newTestHomes(t)
	snap := h.Snapshot()
	assert.Equal(t, 8, snap.Total)
	assert.Equal(t, snap.Total, snap.Safe+snap.Warning+snap.Critical)
	assert.Equal(t, 1, snap.Critical)
}
