package modules

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
)

// Analytics series names.
const (
	SeriesSafety = "safety"
	SeriesEnergy = "energy"
)

// Analytics keeps the rolling charts of the analytics page.
type Analytics struct {
	base
	policy config.AnalyticsPolicy

	series *telemetry.Series
	charts []chart
}

type chart struct {
	name   string
	window int
	values config.IntRange
}

// AnalyticsSnapshot holds every chart, oldest sample first.
type AnalyticsSnapshot struct {
	Names  []string
	Series map[string][]float64
}

// RecyclingSeries names the daily series of one material.
func RecyclingSeries(material string) string {
	return "recycling." + material
}

// NewAnalytics builds the analytics charts and fills them with history.
func NewAnalytics(p config.AnalyticsPolicy, d Deps) (*Analytics, error) {
	if p.Days < 1 || p.SafetyDays < 1 || p.EnergyHours < 1 {
		return nil, fmt.Errorf("analytics windows: %w", ErrInvalidInput)
	}
	a := &Analytics{
		base:   newBase("analytics", d),
		policy: p,
		series: telemetry.NewSeries(),
	}
	for _, m := range p.Recycling {
		a.register(RecyclingSeries(m.Name), p.Days, m.Range())
	}
	a.register(SeriesSafety, p.SafetyDays, p.Safety)
	a.register(SeriesEnergy, p.EnergyHours, p.Energy)
	a.fill()
	return a, nil
}

func (a *Analytics) register(name string, window int, r config.IntRange) {
	a.series.Register(name, window)
	a.charts = append(a.charts, chart{name: name, window: window, values: r})
}

func (a *Analytics) draw(c chart) float64 {
	return float64(c.values.Base + telemetry.IntRange(a.src, 0, c.values.Spread))
}

// fill regenerates every series from scratch. Caller must hold the lock.
func (a *Analytics) fill() {
	for _, c := range a.charts {
		a.series.Clear(c.name)
		for range c.window {
			a.series.Append(c.name, a.draw(c))
		}
	}
}

// Schedules returns the roll-forward tick.
func (a *Analytics) Schedules() []Schedule {
	return []Schedule{{Name: "charts", Interval: a.policy.Interval, Tick: a.tick}}
}

func (a *Analytics) tick(now time.Time) {
	a.locked(func() {
		for _, c := range a.charts {
			v := a.draw(c)
			a.series.Append(c.name, v)
			a.emitSample(now, c.name, v)
		}
	})
}

// Refresh regenerates every chart.
func (a *Analytics) Refresh() {
	a.locked(func() {
		a.fill()
		a.logger.Info("analytics refreshed")
	})
}

// Snapshot returns every series in registration order.
func (a *Analytics) Snapshot() AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, len(a.charts))
	for i, c := range a.charts {
		names[i] = c.name
	}
	return AnalyticsSnapshot{Names: names, Series: a.series.All()}
}
