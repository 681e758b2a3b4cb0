package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/registry"
)

func newTestLighting(t *testing.T, draws ...float64) (*Lighting, *recorder) {
	t.Helper()
	d, rec := testDeps(draws...)
	l, err := NewLighting(testPolicy(t).Lighting, d)
	require.NoError(t, err)
	return l, rec
}

func poleByID(t *testing.T, snap LightingSnapshot, id string) models.Streetlight {
	t.Helper()
	for _, e := range snap.Poles {
		if e.ID == id {
			return e.Value
		}
	}
	t.Fatalf("pole %s not found", id)
	return models.Streetlight{}
}

func TestParseLightingMode(t *testing.T) {
	tests := []struct {
		in      string
		want    LightingMode
		wantErr bool
	}{
		{"auto", ModeAuto, false},
		{" ECO ", ModeEco, false},
		{"Manual", ModeManual, false},
		{"disco", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLightingMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLightingModes(t *testing.T) {
	t.Run("auto brightens on presence", func(t *testing.T) {
		l, _ := newTestLighting(t, 0.1)
		tick(t, l, "control")
		snap := l.Snapshot()
		assert.Equal(t, 95, poleByID(t, snap, "POLE-001").Intensity)
		assert.Equal(t, 100, poleByID(t, snap, "POLE-010").Intensity)
		assert.Equal(t, 0, poleByID(t, snap, "POLE-008").Intensity)
	})

	t.Run("auto dims to the floor", func(t *testing.T) {
		l, _ := newTestLighting(t, 0.9)
		for range 20 {
			tick(t, l, "control")
		}
		assert.Equal(t, 30, poleByID(t, l.Snapshot(), "POLE-001").Intensity)
	})

	t.Run("eco", func(t *testing.T) {
		l, _ := newTestLighting(t, 0.9)
		require.NoError(t, l.SetMode(ModeEco))
		tick(t, l, "control")
		snap := l.Snapshot()
		assert.Equal(t, ModeEco, snap.Mode)
		assert.Equal(t, 25, poleByID(t, snap, "POLE-005").Intensity)
		assert.Equal(t, 25.0, snap.AverageIntensity)
	})

	t.Run("manual", func(t *testing.T) {
		l, _ := newTestLighting(t, 0.1)
		require.NoError(t, l.SetMode(ModeManual))
		require.NoError(t, l.SetManualIntensity(60))
		tick(t, l, "control")
		assert.Equal(t, 60, poleByID(t, l.Snapshot(), "POLE-002").Intensity)
	})

	t.Run("invalid", func(t *testing.T) {
		l, _ := newTestLighting(t)
		assert.ErrorIs(t, l.SetMode("strobe"), ErrInvalidInput)
		assert.ErrorIs(t, l.SetManualIntensity(101), ErrInvalidInput)
		assert.Equal(t, 75, l.Snapshot().ManualIntensity)
	})
}

func TestEnergySaved(t *testing.T) {
	l, rec := newTestLighting(t, 0.1)
	require.Len(t, l.Snapshot().History, 24)

	tick(t, l, "control")
	snap := l.Snapshot()
	assert.InDelta(t, 32.5, snap.EnergySaved, 1e-9)
	assert.InDelta(t, 32.5, snap.History[23], 1e-9)
	assert.Len(t, rec.matching(events.SampleAppended, "", ""), 1)

	l2, _ := newTestLighting(t, 0.99)
	for range 50 {
		tick(t, l2, "control")
	}
	assert.Equal(t, 50.0, l2.Snapshot().EnergySaved)
}

func TestPoleMaintenanceAlerts(t *testing.T) {
	l, rec := newTestLighting(t, 0.5)

	tick(t, l, "control")
	tick(t, l, "control")
	assert.Len(t, rec.matching(events.AlertRaised, "POLE-008", ConditionMaintenance), 1)

	require.NoError(t, l.RepairPole("POLE-008"))
	pole := poleByID(t, l.Snapshot(), "POLE-008")
	assert.Equal(t, models.PoleActive, pole.Status)
	assert.Equal(t, 30, pole.Intensity)
	assert.Len(t, rec.matching(events.AlertCleared, "POLE-008", ConditionMaintenance), 1)

	require.NoError(t, l.FailPole("POLE-002"))
	pole = poleByID(t, l.Snapshot(), "POLE-002")
	assert.Equal(t, models.PoleMaintenance, pole.Status)
	assert.Zero(t, pole.Intensity)
	assert.Len(t, rec.matching(events.AlertRaised, "POLE-002", ConditionMaintenance), 1)

	assert.ErrorIs(t, l.FailPole("POLE-999"), registry.ErrNotFound)
	assert.ErrorIs(t, l.RepairPole("POLE-999"), registry.ErrNotFound)
}

func TestFailRandomPole(t *testing.T) {
	l, _ := newTestLighting(t, 0)

	id, err := l.FailRandomPole()
	require.NoError(t, err)
	assert.Equal(t, "POLE-001", id)

	for range 8 {
		_, err = l.FailRandomPole()
		require.NoError(t, err)
	}
	assert.Zero(t, l.Snapshot().Active)

	_, err = l.FailRandomPole()
	assert.ErrorIs(t, err, ErrInvalidInput)
}
