package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cityFactors() []Factor {
	return []Factor{
		{Name: "waste", Baseline: 10, Weight: 0.3},
		{Name: "safety", Baseline: 15, Weight: 0.4},
		{Name: "energy", Baseline: 8, Weight: 0.3},
	}
}

func TestSafetyIncidentScenario(t *testing.T) {
	a := NewAggregator(1, cityFactors()...)

	a.ApplyIncident("safety", 10)
	assert.Equal(t, 25.0, a.Factor("safety").Value)

	a.Tick()
	assert.Equal(t, 24.0, a.Factor("safety").Value)
	assert.InDelta(t, 9.6, a.Contribution("safety"), 1e-9)

	// waste and energy sit at baseline: 3.0 + 2.4
	assert.InDelta(t, 100-9.6-3.0-2.4, a.Score(), 1e-9)
}

func TestIncidentVisibleBeforeNextTick(t *testing.T) {
	a := NewAggregator(1, cityFactors()...)
	before := a.Score()
	a.ApplyIncident("waste", 15)
	assert.InDelta(t, before-4.5, a.Score(), 1e-9)
}

func TestDecayNeverGoesBelowBaseline(t *testing.T) {
	a := NewAggregator(3, cityFactors()...)
	a.ApplyIncident("energy", 4)

	prev := a.Factor("energy").Value
	for i := 0; i < 10; i++ {
		a.Tick()
		cur := a.Factor("energy").Value
		require.LessOrEqual(t, cur, prev, "recovery must be monotonic")
		require.GreaterOrEqual(t, cur, 8.0)
		prev = cur
	}
	assert.Equal(t, 8.0, a.Factor("energy").Value)
}

func TestScoreAlwaysInRange(t *testing.T) {
	a := NewAggregator(0.5, cityFactors()...)
	for i := 0; i < 200; i++ {
		a.ApplyIncident("safety", 50)
		require.GreaterOrEqual(t, a.Score(), 0.0)
		require.LessOrEqual(t, a.Score(), 100.0)
	}
	assert.Equal(t, 0.0, a.Score())

	for i := 0; i < 50000; i++ {
		a.Tick()
	}
	assert.InDelta(t, 100-3.0-6.0-2.4, a.Score(), 1e-9)

	neg := NewAggregator(1, Factor{Name: "bonus", Baseline: -500, Weight: 1})
	assert.Equal(t, 100.0, neg.Score())
}

func TestUnknownFactorPanics(t *testing.T) {
	a := NewAggregator(1, cityFactors()...)
	assert.Panics(t, func() { a.ApplyIncident("cyber", 20) })
	assert.Panics(t, func() { a.Factor("cyber") })
	assert.False(t, a.Has("cyber"))
	assert.Panics(t, func() { NewAggregator(1, Factor{Name: "x"}, Factor{Name: "x"}) })
	assert.Panics(t, func() { NewAggregator(-1) })
}

func TestReset(t *testing.T) {
	a := NewAggregator(1, cityFactors()...)
	a.ApplyIncident("waste", 40)
	a.ApplyIncident("energy", 12)
	a.Reset()
	for _, f := range a.Factors() {
		assert.Equal(t, f.Baseline, f.Value, f.Name)
	}
	assert.Equal(t, []string{"waste", "safety", "energy"}, names(a.Factors()))
}

func names(fs []Factor) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}
