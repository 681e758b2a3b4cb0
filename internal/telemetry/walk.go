package telemetry

import "math"

// Next advances a bounded random walk by one step:
// clamp(value + uniform(-stepRange/2, +stepRange/2), min, max).
// It is a total function: out-of-range inputs are clamped silently.
func Next(src Source, value, stepRange, min, max float64) float64 {
	step := (src.Float64() - 0.5) * stepRange
	return Clamp(value+step, min, max)
}

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Metric is a single simulated sensor value.
type Metric struct {
	Name      string
	Value     float64
	Min       float64
	Max       float64
	StepRange float64

	// Drift biases every step, for sources whose draws are skewed.
	Drift float64
	// Round keeps the metric integer valued.
	Round bool
}

// Step walks the metric once and returns the new value.
func (m *Metric) Step(src Source) float64 {
	v := Next(src, m.Value+m.Drift, m.StepRange, m.Min, m.Max)
	if m.Round {
		v = Clamp(math.Round(v), m.Min, m.Max)
	}
	m.Value = v
	return v
}

// Set assigns a value directly (edit actions), keeping the bounds invariant.
func (m *Metric) Set(v float64) {
	m.Value = Clamp(v, m.Min, m.Max)
}
