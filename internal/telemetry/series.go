package telemetry

import (
	"fmt"
	"sort"
)

// Series is a set of named float windows (24h, 48h, 7d...) owned by one module.
type Series struct {
	rings map[string]*Ring[float64]
}

// NewSeries creates an empty set.
func NewSeries() *Series {
	return &Series{rings: make(map[string]*Ring[float64])}
}

// Register adds a named window. Registering a name twice panics.
func (s *Series) Register(name string, capacity int) {
	if _, ok := s.rings[name]; ok {
		panic(fmt.Sprintf("telemetry: series %q already registered", name))
	}
	s.rings[name] = NewRing[float64](capacity)
}

// Append pushes a sample onto a registered window.
// Unknown names are a configuration error and panic.
func (s *Series) Append(name string, v float64) {
	s.ring(name).Push(v)
}

// Snapshot returns a copy of one window, oldest first.
func (s *Series) Snapshot(name string) []float64 {
	return s.ring(name).Snapshot()
}

// Clear empties one window.
func (s *Series) Clear(name string) {
	s.ring(name).Clear()
}

// Names lists registered windows in sorted order.
func (s *Series) Names() []string {
	names := make([]string, 0, len(s.rings))
	for n := range s.rings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All copies every window.
func (s *Series) All() map[string][]float64 {
	out := make(map[string][]float64, len(s.rings))
	for n, r := range s.rings {
		out[n] = r.Snapshot()
	}
	return out
}

func (s *Series) ring(name string) *Ring[float64] {
	r, ok := s.rings[name]
	if !ok {
		panic(fmt.Sprintf("telemetry: unknown series %q", name))
	}
	return r
}
