// Package risk folds weighted risk factors into a 0-100 stability score and
// scores individual entities with band rules.
package risk

import (
	"fmt"
	"math"
)

// Factor is one weighted contributor to the stability score.
type Factor struct {
	Name     string
	Value    float64
	Baseline float64
	Weight   float64
}

// Contribution is the amount the factor subtracts from a perfect score.
func (f Factor) Contribution() float64 {
	return f.Value * f.Weight
}

// Aggregator tracks factors that spike on incidents and recover each tick.
// Not safe for concurrent use; owners serialise access.
type Aggregator struct {
	decayStep float64
	order     []string
	factors   map[string]*Factor
}

// NewAggregator registers factors starting at their baselines.
// Duplicate names or a negative decay step panic.
func NewAggregator(decayStep float64, factors ...Factor) *Aggregator {
	if decayStep < 0 {
		panic(fmt.Sprintf("risk: negative decay step %g", decayStep))
	}
	a := &Aggregator{
		decayStep: decayStep,
		factors:   make(map[string]*Factor, len(factors)),
	}
	for _, f := range factors {
		if _, ok := a.factors[f.Name]; ok {
			panic(fmt.Sprintf("risk: factor %q registered twice", f.Name))
		}
		f.Value = f.Baseline
		a.factors[f.Name] = &f
		a.order = append(a.order, f.Name)
	}
	return a
}

// Tick decays every factor by the decay step, never below its baseline.
func (a *Aggregator) Tick() {
	for _, name := range a.order {
		f := a.factors[name]
		f.Value = math.Max(f.Baseline, f.Value-a.decayStep)
	}
}

// ApplyIncident adds delta to a factor. The value is not capped; large spikes
// decay out over many ticks. Unknown names panic.
func (a *Aggregator) ApplyIncident(name string, delta float64) {
	a.mustFactor(name).Value += delta
}

// Score returns clamp(100 - Σ value×weight, 0, 100).
func (a *Aggregator) Score() float64 {
	score := 100.0
	for _, name := range a.order {
		score -= a.factors[name].Contribution()
	}
	return math.Max(0, math.Min(100, score))
}

// Factor returns a copy of a registered factor. Unknown names panic.
func (a *Aggregator) Factor(name string) Factor {
	return *a.mustFactor(name)
}

// Contribution returns value×weight for one factor.
func (a *Aggregator) Contribution(name string) float64 {
	return a.mustFactor(name).Contribution()
}

// Has reports whether a factor is registered.
func (a *Aggregator) Has(name string) bool {
	_, ok := a.factors[name]
	return ok
}

// Factors returns copies in registration order.
func (a *Aggregator) Factors() []Factor {
	out := make([]Factor, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.factors[name])
	}
	return out
}

// Reset restores every factor to its baseline.
func (a *Aggregator) Reset() {
	for _, f := range a.factors {
		f.Value = f.Baseline
	}
}

func (a *Aggregator) mustFactor(name string) *Factor {
	f, ok := a.factors[name]
	if !ok {
		panic(fmt.Sprintf("risk: unknown factor %q", name))
	}
	return f
}
