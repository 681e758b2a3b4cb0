// Package telemetry provides the simulated sensor primitives: random sources,
// bounded random walks and fixed-capacity sample windows.
package telemetry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Source yields uniformly distributed values in [0, 1).
// *rand.Rand satisfies it, so does Sequence for deterministic tests.
type Source interface {
	Float64() float64
}

// NewSource returns a PCG-backed source. A zero seed picks one from the clock.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Derive returns a per-module seed so sibling modules never share a stream.
func Derive(seed uint64, name string) uint64 {
	if seed == 0 {
		return 0
	}
	h := seed
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 0x100000001b3
	}
	if h == 0 {
		h = 1
	}
	return h
}

// Sequence replays a fixed list of draws, wrapping around at the end.
// Values are clamped into [0, 1).
type Sequence struct {
	values []float64
	pos    int
}

// NewSequence creates a replaying source.
func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &Sequence{values: values}
}

// Float64 returns the next draw.
func (s *Sequence) Float64() float64 {
	v := s.values[s.pos%len(s.values)]
	s.pos++
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return math.Nextafter(1, 0)
	}
	return v
}

// Uniform draws from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// IntRange draws an integer from [lo, hi). hi <= lo returns lo.
func IntRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	n := int(src.Float64() * float64(hi-lo))
	if n >= hi-lo {
		n = hi - lo - 1
	}
	return lo + n
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}
