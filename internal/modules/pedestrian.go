package modules

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// SeriesViolations names the events published for each recorded violation.
const SeriesViolations = "violations"

// Pedestrian monitors crosswalk alerts and speeding vehicles.
type Pedestrian struct {
	base
	policy config.PedestrianPolicy

	tiers      *tier.Classifier
	speedTiers *tier.Classifier
	dedup      *alert.Deduplicator
	history    *telemetry.Ring[float64]
	log        *telemetry.Ring[models.Violation]

	alerts     int
	violations int
	risk       int
	level      tier.Level
}

// PedestrianSnapshot is a read-only view of pedestrian safety.
type PedestrianSnapshot struct {
	Alerts     int
	Violations int
	Risk       int
	Level      string
	Alerting   bool
	History    []float64
	Recent     []models.Violation
	Crosswalks []Crosswalk
}

// NewPedestrian builds the pedestrian safety monitor.
func NewPedestrian(p config.PedestrianPolicy, d Deps) (*Pedestrian, error) {
	tiers, alertAt, err := p.Tiers.Build()
	if err != nil {
		return nil, fmt.Errorf("pedestrian tiers: %w", err)
	}
	speedTiers, err := p.SpeedTiers.Classifier()
	if err != nil {
		return nil, fmt.Errorf("pedestrian speed tiers: %w", err)
	}
	if len(p.AlertHistory) == 0 || p.ViolationLog < 1 {
		return nil, fmt.Errorf("pedestrian history: %w", ErrInvalidInput)
	}

	pd := &Pedestrian{
		base:       newBase("pedestrian", d),
		policy:     p,
		tiers:      tiers,
		speedTiers: speedTiers,
		dedup:      alert.New(alertAt),
		history:    telemetry.NewRing[float64](len(p.AlertHistory)),
		log:        telemetry.NewRing[models.Violation](p.ViolationLog),
		alerts:     p.InitialAlerts,
		violations: p.InitialViolations,
	}
	for _, v := range p.AlertHistory {
		pd.history.Push(v)
	}

	now := pd.now()
	for i, v := range violationSeeds {
		v.Severity = speedTiers.Classify(float64(v.SpeedKmh)).Name
		v.At = now.Add(-time.Duration(len(violationSeeds)-i) * 5 * time.Minute)
		pd.log.Push(v)
	}
	// Prime state without publishing; nobody is subscribed yet.
	pd.refresh(now)
	pd.pending = nil
	return pd, nil
}

// Schedules returns the monitoring tick.
func (p *Pedestrian) Schedules() []Schedule {
	return []Schedule{{Name: "monitor", Interval: p.policy.Interval, Tick: p.tick}}
}

func (p *Pedestrian) tick(now time.Time) {
	p.locked(func() {
		if !telemetry.Chance(p.src, p.policy.AlertChance) {
			return
		}
		p.alerts++
		p.logger.Info("pedestrian alert", "total", p.alerts)
		p.history.Push(float64(p.alerts))
		p.emitSample(now, "alerts", float64(p.alerts))
		p.refresh(now)
	})
}

// refresh recomputes the risk score. Caller must hold the lock.
func (p *Pedestrian) refresh(now time.Time) {
	p.risk = min(p.alerts*p.policy.AlertWeight+p.violations*p.policy.ViolationWeight, 100)
	p.level = p.tiers.Classify(float64(p.risk))
	p.emitScore(now, CityEntity, float64(p.risk), p.level)
	p.observe(now, p.dedup, CityEntity, "pedestrian_risk", p.level, float64(p.risk))
}

// RecordViolation logs a speeding vehicle at a known crosswalk. The severity
// is derived from the speed and a zero time is stamped with the clock.
func (p *Pedestrian) RecordViolation(v models.Violation) (models.Violation, error) {
	v.Crosswalk = strings.ToUpper(strings.TrimSpace(v.Crosswalk))
	if !slices.ContainsFunc(crosswalks, func(c Crosswalk) bool { return c.ID == v.Crosswalk }) {
		return v, fmt.Errorf("%w: unknown crosswalk %q", ErrInvalidInput, v.Crosswalk)
	}
	if v.SpeedKmh <= 0 {
		return v, fmt.Errorf("%w: speed must be positive", ErrInvalidInput)
	}
	p.locked(func() {
		v = p.record(v)
	})
	return v, nil
}

// SimulateViolation records a random violation at one of the busy crosswalks.
func (p *Pedestrian) SimulateViolation() models.Violation {
	var v models.Violation
	p.locked(func() {
		r := p.policy.ViolationSpeed
		v = p.record(models.Violation{
			Crosswalk: hotCrosswalks[telemetry.IntRange(p.src, 0, len(hotCrosswalks))],
			Vehicle:   fmt.Sprintf("VEH-%d", telemetry.IntRange(p.src, 1000, 9999)),
			SpeedKmh:  telemetry.IntRange(p.src, r.Base, r.Base+r.Spread),
		})
	})
	return v
}

// record stores a validated violation. Caller must hold the lock.
func (p *Pedestrian) record(v models.Violation) models.Violation {
	now := p.now()
	if v.At.IsZero() {
		v.At = now
	}
	lvl := p.speedTiers.Classify(float64(v.SpeedKmh))
	v.Severity = lvl.Name

	p.violations++
	p.log.Push(v)
	p.logger.Warn("speed violation",
		"crosswalk", v.Crosswalk, "vehicle", v.Vehicle, "speed_kmh", v.SpeedKmh, "severity", v.Severity)
	p.emit(events.Event{
		Kind:     events.SampleAppended,
		EntityID: v.Crosswalk,
		Series:   SeriesViolations,
		Severity: v.Severity,
		Value:    float64(v.SpeedKmh),
		At:       v.At,
	})
	p.refresh(now)
	return v
}

// Acknowledge resolves every open alert and violation.
func (p *Pedestrian) Acknowledge() {
	p.locked(func() {
		p.alerts = 0
		p.violations = 0
		p.logger.Info("pedestrian alerts acknowledged")
		p.refresh(p.now())
	})
}

// Snapshot returns counters, the risk tier and the recent violation log.
func (p *Pedestrian) Snapshot() PedestrianSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PedestrianSnapshot{
		Alerts:     p.alerts,
		Violations: p.violations,
		Risk:       p.risk,
		Level:      p.level.Name,
		Alerting:   p.dedup.Alerting(CityEntity, "pedestrian_risk"),
		History:    p.history.Snapshot(),
		Recent:     p.log.Snapshot(),
		Crosswalks: slices.Clone(crosswalks),
	}
}
