package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/citypulse/internal/tier"
)

func gasTiers() *tier.Classifier {
	return tier.MustNew([]tier.Cutoff{
		{Tier: "Safe", Below: 300},
		{Tier: "Warning", Below: 500},
	}, "Critical")
}

func TestGasScenario(t *testing.T) {
	c := gasTiers()
	critical, ok := c.Lookup("Critical")
	require.True(t, ok)
	d := New(critical)

	var raised, cleared int
	feed := func(v float64) {
		if tr, ok := d.Observe("home-5004", "gas", c.Classify(v)); ok {
			if tr.Raised() {
				raised++
			} else {
				cleared++
			}
		}
	}

	feed(520)
	assert.Equal(t, 1, raised)
	assert.True(t, d.Alerting("home-5004", "gas"))

	for _, v := range []float64{530, 515, 501} {
		feed(v)
	}
	assert.Equal(t, 1, raised, "no repeat while the condition persists")
	assert.Equal(t, 0, cleared)

	feed(480)
	assert.Equal(t, 1, cleared)
	assert.False(t, d.Alerting("home-5004", "gas"))

	feed(510)
	assert.Equal(t, 2, raised, "fresh transition raises again")
}

func TestObserveReturnsTransitionDetails(t *testing.T) {
	c := gasTiers()
	warning, _ := c.Lookup("Warning")
	d := New(warning)

	tr, ok := d.Observe("H-5002", "gas", c.Classify(310))
	require.True(t, ok)
	assert.Equal(t, Transition{EntityID: "H-5002", Condition: "gas", To: Alerting, Severity: warning}, tr)

	// escalation keeps the alert open without a new transition
	_, ok = d.Observe("H-5002", "gas", c.Classify(600))
	assert.False(t, ok)
	require.Len(t, d.Open(), 1)
	assert.Equal(t, "Critical", d.Open()[0].Severity.Name)

	tr, ok = d.Observe("H-5002", "gas", c.Classify(100))
	require.True(t, ok)
	assert.Equal(t, Clear, tr.To)
	assert.Equal(t, "Safe", tr.Severity.Name)

	_, ok = d.Observe("H-5002", "gas", c.Classify(50))
	assert.False(t, ok, "clear to clear is silent")
}

func TestConditionsAreIndependent(t *testing.T) {
	c := gasTiers()
	d := New(c.Highest())

	_, ok := d.Observe("H-1", "gas", c.Highest())
	assert.True(t, ok)
	_, ok = d.Observe("H-1", "smoke", c.Highest())
	assert.True(t, ok)
	_, ok = d.Observe("H-2", "gas", c.Highest())
	assert.True(t, ok)
	assert.Equal(t, 3, d.Count())

	open := d.Open()
	assert.Equal(t, "H-1", open[0].EntityID)
	assert.Equal(t, "gas", open[0].Condition)
	assert.Equal(t, "smoke", open[1].Condition)
	assert.Equal(t, "H-2", open[2].EntityID)
}

func TestForgetAndReset(t *testing.T) {
	c := gasTiers()
	d := New(c.Highest())
	d.Observe("H-1", "gas", c.Highest())
	d.Observe("H-1", "smoke", c.Highest())
	d.Observe("H-2", "gas", c.Highest())

	d.Forget("H-1")
	assert.False(t, d.Alerting("H-1", "gas"))
	assert.False(t, d.Alerting("H-1", "smoke"))
	assert.True(t, d.Alerting("H-2", "gas"))

	// a forgotten pair starts fresh
	_, ok := d.Observe("H-1", "gas", c.Highest())
	assert.True(t, ok)

	d.Reset()
	assert.Zero(t, d.Count())
	_, ok = d.Observe("H-2", "gas", c.Lowest())
	assert.False(t, ok, "reset pairs clear silently")
}
