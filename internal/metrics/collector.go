// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/raphaelgruber/citypulse/internal/events"
)

// OperationMetrics holds aggregated timings for one clock.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Name        string
	Count       int64
	TotalTimeMs float64
	AvgTimeMs   float64
	MinTimeMs   float64
	MaxTimeMs   float64
}

// Snapshot represents the engine statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	// Ticks is sorted by clock name.
	Ticks []OperationSnapshot
	// Events counts published events per kind.
	Events map[events.Kind]int64
	// Modules counts published events per module.
	Modules map[string]int64
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	events    map[events.Kind]int64
	modules   map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		events:    make(map[events.Kind]int64),
		modules:   make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records the duration of one tick handler run.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordEvent counts a published event. It has the events.Handler signature
// so it can be subscribed to a bus directly.
func (c *Collector) RecordEvent(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events[ev.Kind]++
	c.modules[ev.Module]++
}

// snapshotOp creates a snapshot for an operation, returning false if no data.
func snapshotOp(name string, m *OperationMetrics) (OperationSnapshot, bool) {
	if m == nil || m.Count == 0 {
		return OperationSnapshot{}, false
	}
	return OperationSnapshot{
		Name:        name,
		Count:       m.Count,
		TotalTimeMs: ms(m.TotalTime),
		AvgTimeMs:   ms(m.TotalTime) / float64(m.Count),
		MinTimeMs:   ms(m.MinTime),
		MaxTimeMs:   ms(m.MaxTime),
	}, true
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Events:        make(map[events.Kind]int64, len(c.events)),
		Modules:       make(map[string]int64, len(c.modules)),
	}
	for name, m := range c.ops {
		if op, ok := snapshotOp(name, m); ok {
			snap.Ticks = append(snap.Ticks, op)
		}
	}
	sort.Slice(snap.Ticks, func(i, j int) bool { return snap.Ticks[i].Name < snap.Ticks[j].Name })
	for k, v := range c.events {
		snap.Events[k] = v
	}
	for k, v := range c.modules {
		snap.Modules[k] = v
	}
	return snap
}
