package modules

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/risk"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// CityEntity is the entity id used for city-wide conditions.
const CityEntity = "city"

// Security is the security intelligence center. Risk factors spike on
// simulated incidents and recover every tick; the resulting stability score
// is classified and alerted on.
type Security struct {
	base
	policy config.SecurityPolicy

	agg       *risk.Aggregator
	tiers     *tier.Classifier
	dedup     *alert.Deduplicator
	incidents map[string]config.IncidentSpec
	history   *telemetry.Ring[float64]
	threats   *telemetry.Ring[models.Threat]
	health    []models.ComponentHealth

	score int
	level tier.Level
}

// SecuritySnapshot is a read-only view of the security center.
type SecuritySnapshot struct {
	Score    int
	Level    string
	Factors  []risk.Factor
	Risk     []float64
	Alerting bool

	// Threats lists the newest threat first.
	Threats []models.Threat
	Health  []models.ComponentHealth
}

// Health risk ratings.
const (
	riskLow  = "Low"
	riskHigh = "High"
)

// NewSecurity builds the security center from its policy.
func NewSecurity(p config.SecurityPolicy, d Deps) (*Security, error) {
	tiers, alertAt, err := p.Tiers.Build()
	if err != nil {
		return nil, fmt.Errorf("security tiers: %w", err)
	}
	if p.History < 1 || p.ThreatLog < 1 {
		return nil, fmt.Errorf("security history or threat log size: %w", ErrInvalidInput)
	}

	factors := make([]risk.Factor, len(p.Factors))
	for i, f := range p.Factors {
		factors[i] = risk.Factor{Name: f.Name, Baseline: f.Baseline, Weight: f.Weight}
	}
	agg := risk.NewAggregator(p.DecayStep, factors...)

	incidents := make(map[string]config.IncidentSpec, len(p.Incidents))
	for _, inc := range p.Incidents {
		if !agg.Has(inc.Factor) {
			return nil, fmt.Errorf("security incident %s: unknown factor %q", inc.Name, inc.Factor)
		}
		incidents[inc.Name] = inc
	}

	s := &Security{
		base:      newBase("security", d),
		policy:    p,
		agg:       agg,
		tiers:     tiers,
		dedup:     alert.New(alertAt),
		incidents: incidents,
		history:   telemetry.NewRing[float64](p.History),
		threats:   telemetry.NewRing[models.Threat](p.ThreatLog),
	}
	s.seedHealth(s.now())
	// Prime state without publishing; nobody is subscribed yet.
	s.refresh(s.now())
	s.pending = nil
	return s, nil
}

// Schedules returns the recovery tick.
func (s *Security) Schedules() []Schedule {
	return []Schedule{{Name: "monitor", Interval: s.policy.Interval, Tick: s.tick}}
}

func (s *Security) tick(now time.Time) {
	s.locked(func() {
		s.agg.Tick()
		s.refresh(now)
	})
}

// refresh recomputes the score and emits score, sample and alert events.
// Caller must hold the lock.
func (s *Security) refresh(now time.Time) {
	// The dashboard shows whole points, truncated.
	s.score = int(s.agg.Score())
	riskValue := float64(100 - s.score)
	s.level = s.tiers.Classify(riskValue)
	s.history.Push(riskValue)

	s.emitScore(now, CityEntity, float64(s.score), s.level)
	s.emitSample(now, "risk", riskValue)
	s.observe(now, s.dedup, CityEntity, "stability", s.level, float64(s.score))
}

// SimulateIncident applies a named incident from the policy.
func (s *Security) SimulateIncident(name string) error {
	return s.lockedErr(func() error {
		inc, ok := s.incidents[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownIncident, name)
		}
		now := s.now()
		s.agg.ApplyIncident(inc.Factor, inc.Delta)
		s.logger.Info("incident simulated", "incident", name, "factor", inc.Factor, "delta", inc.Delta)
		if inc.Threat != "" {
			s.addThreat(models.Threat{Type: inc.Threat, Component: inc.Component, Severity: inc.Severity, At: now})
		}
		if inc.Health != "" {
			status, _ := models.ParseHealthStatus(inc.Health)
			s.degrade(inc.Component, status, now)
		}
		s.refresh(now)
		return nil
	})
}

// ApplyIncident spikes a factor directly. Unknown factors panic.
func (s *Security) ApplyIncident(factor string, delta float64) {
	s.locked(func() {
		s.agg.ApplyIncident(factor, delta)
		s.refresh(s.now())
	})
}

// Reset restores every factor to its baseline and every component to
// Operational. The threat list is kept.
func (s *Security) Reset() {
	s.locked(func() {
		now := s.now()
		s.agg.Reset()
		for i := range s.health {
			s.health[i].Status = models.HealthOperational
			s.health[i].Risk = riskLow
			s.health[i].LastSignal = now
		}
		s.logger.Info("system state reset")
		s.refresh(now)
	})
}

// TriggerThreat injects one of the configured threats at random, as a
// warning or critical entry with equal odds. It returns the recorded threat.
func (s *Security) TriggerThreat() (models.Threat, error) {
	var th models.Threat
	err := s.lockedErr(func() error {
		if len(s.policy.Threats) == 0 {
			return fmt.Errorf("no threats configured: %w", ErrInvalidInput)
		}
		spec := s.policy.Threats[telemetry.IntRange(s.src, 0, len(s.policy.Threats))]
		severity := models.ThreatCritical
		if telemetry.Chance(s.src, 0.5) {
			severity = models.ThreatWarning
		}
		th = models.Threat{Type: spec.Type, Component: spec.Component, Severity: severity, At: s.now()}
		s.addThreat(th)
		return nil
	})
	return th, err
}

// ClearThreats empties the threat list.
func (s *Security) ClearThreats() {
	s.locked(func() {
		s.threats.Clear()
		s.logger.Info("threat list cleared")
		s.emitSample(s.now(), "threats", 0)
	})
}

// addThreat records th and emits the threat count. Caller must hold the lock.
func (s *Security) addThreat(th models.Threat) {
	s.threats.Push(th)
	s.logger.Warn("threat detected", "type", th.Type, "component", th.Component, "severity", th.Severity)
	s.emit(events.Event{
		Kind:      events.SampleAppended,
		EntityID:  th.Component,
		Condition: th.Type,
		Severity:  th.Severity,
		Series:    "threats",
		Value:     float64(s.threats.Len()),
		At:        th.At,
	})
}

// degrade marks a component unhealthy. Caller must hold the lock.
func (s *Security) degrade(component string, status models.HealthStatus, now time.Time) {
	for i := range s.health {
		if s.health[i].Name == component {
			s.health[i].Status = status
			s.health[i].Risk = riskHigh
			s.health[i].LastSignal = now
			return
		}
	}
}

func (s *Security) seedHealth(now time.Time) {
	s.health = make([]models.ComponentHealth, len(s.policy.Components))
	for i, name := range s.policy.Components {
		h, ok := healthSeeds[name]
		if !ok {
			h = models.ComponentHealth{Status: models.HealthOperational, Risk: riskLow}
		}
		h.Name = name
		h.LastSignal = now
		s.health[i] = h
	}
}

// Incidents lists the configured incident names in policy order.
func (s *Security) Incidents() []string {
	out := make([]string, 0, len(s.policy.Incidents))
	for _, inc := range s.policy.Incidents {
		out = append(out, inc.Name)
	}
	return out
}

// Snapshot returns the current state.
func (s *Security) Snapshot() SecuritySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SecuritySnapshot{
		Score:    s.score,
		Level:    s.level.Name,
		Factors:  s.agg.Factors(),
		Risk:     s.history.Snapshot(),
		Alerting: s.dedup.Alerting(CityEntity, "stability"),
		Threats:  lo.Reverse(s.threats.Snapshot()),
		Health:   append([]models.ComponentHealth(nil), s.health...),
	}
}
