package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStaysWithinBounds(t *testing.T) {
	tests := []struct {
		name                string
		value, step, lo, hi float64
	}{
		{"inside", 50, 10, 0, 100},
		{"at floor", 0, 35, 0, 800},
		{"at ceiling", 800, 35, 0, 800},
		{"huge step", 10, 1000, 0, 20},
		{"start below range", -50, 5, 0, 10},
		{"start above range", 500, 5, 0, 10},
		{"degenerate range", 3, 4, 3, 3},
	}

	draws := []float64{0, 0.000001, 0.25, 0.5, 0.75, 0.999999}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, d := range draws {
				got := Next(NewSequence(d), tt.value, tt.step, tt.lo, tt.hi)
				assert.GreaterOrEqual(t, got, tt.lo)
				assert.LessOrEqual(t, got, tt.hi)
			}
		})
	}
}

func TestNextDeterministicStep(t *testing.T) {
	// 0.75 -> +0.25 of the step range
	assert.InDelta(t, 52.5, Next(NewSequence(0.75), 50, 10, 0, 100), 1e-9)
	// 0.5 -> no movement
	assert.InDelta(t, 50.0, Next(NewSequence(0.5), 50, 10, 0, 100), 1e-9)
	// 0 -> -step/2, clamped at the floor
	assert.InDelta(t, 0.0, Next(NewSequence(0), 2, 10, 0, 100), 1e-9)
}

func TestNextRandomSourceNeverEscapes(t *testing.T) {
	src := NewSource(42)
	v := 400.0
	for i := 0; i < 10000; i++ {
		v = Next(src, v, 35, 0, 800)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 800.0)
	}
}

func TestMetricStepDriftAndRound(t *testing.T) {
	m := Metric{Name: "passengers", Value: 100, Min: 0, Max: 120, StepRange: 24, Drift: 2, Round: true}

	got := m.Step(NewSequence(0.5))
	assert.Equal(t, 102.0, got)
	assert.Equal(t, 102.0, m.Value)

	got = m.Step(NewSequence(0.99))
	assert.Equal(t, 116.0, got)

	got = m.Step(NewSequence(0.99))
	assert.Equal(t, 120.0, got, "rounded value must still be clamped")
}

func TestMetricSetClamps(t *testing.T) {
	m := Metric{Min: 15, Max: 45}
	m.Set(100)
	assert.Equal(t, 45.0, m.Value)
	m.Set(-3)
	assert.Equal(t, 15.0, m.Value)
}

func TestDrawHelpers(t *testing.T) {
	assert.Equal(t, 120, IntRange(NewSequence(0), 120, 300))
	assert.Equal(t, 299, IntRange(NewSequence(0.999999), 120, 300))
	assert.Equal(t, 7, IntRange(NewSequence(0.3), 7, 7))

	assert.True(t, Chance(NewSequence(0.1), 0.15))
	assert.False(t, Chance(NewSequence(0.15), 0.15))

	assert.InDelta(t, 35.0, Uniform(NewSequence(1), 15, 35), 1e-9)
}

func TestDeriveSeparatesModules(t *testing.T) {
	assert.Zero(t, Derive(0, "homes"))
	assert.NotEqual(t, Derive(7, "homes"), Derive(7, "stations"))
	assert.Equal(t, Derive(7, "homes"), Derive(7, "homes"))
}
