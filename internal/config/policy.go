package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/risk"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// ErrInvalidPolicy wraps every policy validation failure.
var ErrInvalidPolicy = errors.New("invalid policy")

// Policy holds the numeric policy of every city module.
type Policy struct {
	Security   SecurityPolicy   `yaml:"security"`
	City       CityPolicy       `yaml:"city"`
	Homes      HomesPolicy      `yaml:"homes"`
	Stations   StationsPolicy   `yaml:"stations"`
	Recycling  RecyclingPolicy  `yaml:"recycling"`
	Lighting   LightingPolicy   `yaml:"lighting"`
	Pedestrian PedestrianPolicy `yaml:"pedestrian"`
	Analytics  AnalyticsPolicy  `yaml:"analytics"`
}

// TierSpec is one named cutoff.
type TierSpec struct {
	Name  string  `yaml:"name"`
	Below float64 `yaml:"below"`
}

// TierSet describes a threshold classifier and, optionally, its alert tier.
type TierSet struct {
	Cutoffs []TierSpec `yaml:"cutoffs"`
	Top     string     `yaml:"top"`
	AlertAt string     `yaml:"alert_at,omitempty"`
}

// Classifier builds the validated classifier.
func (t TierSet) Classifier() (*tier.Classifier, error) {
	cutoffs := make([]tier.Cutoff, len(t.Cutoffs))
	for i, c := range t.Cutoffs {
		cutoffs[i] = tier.Cutoff{Tier: c.Name, Below: c.Below}
	}
	return tier.New(cutoffs, t.Top)
}

// Build returns the classifier and the alert level. An empty AlertAt alerts
// at the top tier.
func (t TierSet) Build() (*tier.Classifier, tier.Level, error) {
	c, err := t.Classifier()
	if err != nil {
		return nil, tier.Level{}, err
	}
	if t.AlertAt == "" {
		return c, c.Highest(), nil
	}
	lvl, ok := c.Lookup(t.AlertAt)
	if !ok {
		return nil, tier.Level{}, fmt.Errorf("alert tier %q is not configured", t.AlertAt)
	}
	return c, lvl, nil
}

// WalkSpec configures a bounded random walk.
type WalkSpec struct {
	Initial float64 `yaml:"initial,omitempty"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Step    float64 `yaml:"step"`
	Drift   float64 `yaml:"drift,omitempty"`
	Round   bool    `yaml:"round,omitempty"`
}

// Metric creates a walking metric starting at value.
func (w WalkSpec) Metric(name string, value float64) telemetry.Metric {
	return telemetry.Metric{
		Name:      name,
		Value:     telemetry.Clamp(value, w.Min, w.Max),
		Min:       w.Min,
		Max:       w.Max,
		StepRange: w.Step,
		Drift:     w.Drift,
		Round:     w.Round,
	}
}

func (w WalkSpec) validate(withInitial bool) error {
	if w.Min > w.Max {
		return fmt.Errorf("min %g above max %g", w.Min, w.Max)
	}
	if w.Step < 0 {
		return fmt.Errorf("negative step %g", w.Step)
	}
	if withInitial && (w.Initial < w.Min || w.Initial > w.Max) {
		return fmt.Errorf("initial %g outside [%g, %g]", w.Initial, w.Min, w.Max)
	}
	return nil
}

// FactorSpec configures one weighted risk factor.
type FactorSpec struct {
	Name     string  `yaml:"name"`
	Baseline float64 `yaml:"baseline"`
	Weight   float64 `yaml:"weight"`
}

// IncidentSpec maps a simulated incident to a factor spike. Threat adds an
// entry to the threat list; Health degrades the named component.
type IncidentSpec struct {
	Name      string  `yaml:"name"`
	Factor    string  `yaml:"factor"`
	Delta     float64 `yaml:"delta"`
	Threat    string  `yaml:"threat,omitempty"`
	Component string  `yaml:"component,omitempty"`
	Severity  string  `yaml:"severity,omitempty"`
	Health    string  `yaml:"health,omitempty"`
}

// ThreatSpec is a threat that can be injected at random.
type ThreatSpec struct {
	Type      string `yaml:"type"`
	Component string `yaml:"component"`
}

// BandSpec awards points at or above a threshold.
type BandSpec struct {
	AtLeast float64 `yaml:"at_least"`
	Points  int     `yaml:"points"`
}

// RuleSpec is a banded scoring rule for one metric.
type RuleSpec struct {
	Metric string     `yaml:"metric"`
	Bands  []BandSpec `yaml:"bands"`
}

// Scorer builds an entity scorer from rules.
func Scorer(rules []RuleSpec) (*risk.Scorer, error) {
	out := make([]risk.Rule, len(rules))
	for i, r := range rules {
		bands := make([]risk.Band, len(r.Bands))
		for j, b := range r.Bands {
			bands[j] = risk.Band{AtLeast: b.AtLeast, Points: b.Points}
		}
		out[i] = risk.Rule{Metric: r.Metric, Bands: bands}
	}
	return risk.NewScorer(out...)
}

// IntRange is a draw from [Base, Base+Spread).
type IntRange struct {
	Base   int `yaml:"base"`
	Spread int `yaml:"spread"`
}

// NamedRange is an IntRange for a named series.
type NamedRange struct {
	Name   string `yaml:"name"`
	Base   int    `yaml:"base"`
	Spread int    `yaml:"spread"`
}

// Range returns the draw range.
func (n NamedRange) Range() IntRange {
	return IntRange{Base: n.Base, Spread: n.Spread}
}

// MaterialSpec is one recycled material stream.
type MaterialSpec struct {
	Name  string  `yaml:"name"`
	Share float64 `yaml:"share"`
	// Initial total in kg.
	Initial float64 `yaml:"initial"`
}

// SecurityPolicy configures the security intelligence center.
type SecurityPolicy struct {
	Interval  time.Duration  `yaml:"interval"`
	DecayStep float64        `yaml:"decay_step"`
	Factors   []FactorSpec   `yaml:"factors"`
	Incidents []IncidentSpec `yaml:"incidents"`
	// Tiers classify risk, i.e. 100 minus the stability score.
	Tiers   TierSet `yaml:"tiers"`
	History int     `yaml:"history"`

	Components []string     `yaml:"components"`
	Threats    []ThreatSpec `yaml:"threats"`
	ThreatLog  int          `yaml:"threat_log"`
}

// CityPolicy configures the city intelligence module.
type CityPolicy struct {
	Interval  time.Duration `yaml:"interval"`
	Stability WalkSpec      `yaml:"stability"`
	// Tiers classify risk, i.e. 100 minus the stability score.
	Tiers          TierSet      `yaml:"tiers"`
	ForecastSize   int          `yaml:"forecast_size"`
	ForecastMin    float64      `yaml:"forecast_min"`
	ForecastSpread float64      `yaml:"forecast_spread"`
	Breakdown      []FactorSpec `yaml:"breakdown"`

	DecisionLog int `yaml:"decision_log"`

	// InsightChance is the per-tick chance of logging a pattern insight.
	InsightChance   float64  `yaml:"insight_chance"`
	Categories      []string `yaml:"categories"`
	Recommendations []string `yaml:"recommendations"`
}

// HomesPolicy configures home security monitoring.
type HomesPolicy struct {
	SensorInterval time.Duration `yaml:"sensor_interval"`
	ChartInterval  time.Duration `yaml:"chart_interval"`
	AlertInterval  time.Duration `yaml:"alert_interval"`
	FirstID        int           `yaml:"first_id"`

	Gas         WalkSpec `yaml:"gas"`
	Smoke       WalkSpec `yaml:"smoke"`
	Temperature WalkSpec `yaml:"temperature"`
	Humidity    WalkSpec `yaml:"humidity"`

	GasTiers   TierSet    `yaml:"gas_tiers"`
	SmokeTiers TierSet    `yaml:"smoke_tiers"`
	Risk       []RuleSpec `yaml:"risk"`

	History           int     `yaml:"history"`
	TemperatureCenter float64 `yaml:"temperature_center"`
	TemperatureSpread float64 `yaml:"temperature_spread"`
	HumidityCenter    float64 `yaml:"humidity_center"`
	HumiditySpread    float64 `yaml:"humidity_spread"`
}

// StationsPolicy configures smart stations.
type StationsPolicy struct {
	StatsInterval time.Duration `yaml:"stats_interval"`
	BusInterval   time.Duration `yaml:"bus_interval"`
	RFIDInterval  time.Duration `yaml:"rfid_interval"`
	FirstID       int           `yaml:"first_id"`

	// Passengers bounds come from each station's capacity.
	Passengers   WalkSpec `yaml:"passengers"`
	FullAt       int      `yaml:"full_at"`
	ReleaseBelow int      `yaml:"release_below"`
	Occupancy    TierSet  `yaml:"occupancy"`

	BusInitial int      `yaml:"bus_initial"`
	BusReset   IntRange `yaml:"bus_reset"`
	RFIDLog    int      `yaml:"rfid_log"`
	PassID     IntRange `yaml:"pass_id"`
}

// RecyclingPolicy configures smart recycling.
type RecyclingPolicy struct {
	Interval     time.Duration  `yaml:"interval"`
	IncrementMin float64        `yaml:"increment_min"`
	IncrementMax float64        `yaml:"increment_max"`
	Materials    []MaterialSpec `yaml:"materials"`
	BinFill      IntRange       `yaml:"bin_fill"`
	Tiers        TierSet        `yaml:"tiers"`
}

// LightingPolicy configures smart lighting.
type LightingPolicy struct {
	Interval       time.Duration `yaml:"interval"`
	Saving         WalkSpec      `yaml:"saving"`
	History        int           `yaml:"history"`
	HistoryMin     float64       `yaml:"history_min"`
	HistorySpread  float64       `yaml:"history_spread"`
	PresenceChance float64       `yaml:"presence_chance"`

	AutoStep   int `yaml:"auto_step_up"`
	AutoDecay  int `yaml:"auto_step_down"`
	AutoMin    int `yaml:"auto_min"`
	AutoMax    int `yaml:"auto_max"`
	EcoActive  int `yaml:"eco_presence"`
	EcoIdle    int `yaml:"eco_idle"`
	ManualInit int `yaml:"manual_intensity"`
}

// PedestrianPolicy configures pedestrian safety.
type PedestrianPolicy struct {
	Interval          time.Duration `yaml:"interval"`
	AlertChance       float64       `yaml:"alert_chance"`
	InitialAlerts     int           `yaml:"initial_alerts"`
	InitialViolations int           `yaml:"initial_violations"`
	AlertHistory      []float64     `yaml:"alert_history"`
	AlertWeight       int           `yaml:"alert_weight"`
	ViolationWeight   int           `yaml:"violation_weight"`
	Tiers             TierSet       `yaml:"tiers"`
	SpeedTiers        TierSet       `yaml:"speed_tiers"`
	ViolationSpeed    IntRange      `yaml:"violation_speed"`
	ViolationLog      int           `yaml:"violation_log"`
}

// AnalyticsPolicy configures rolling analytics.
type AnalyticsPolicy struct {
	Interval    time.Duration `yaml:"interval"`
	Days        int           `yaml:"days"`
	Recycling   []NamedRange  `yaml:"recycling"`
	SafetyDays  int           `yaml:"safety_days"`
	Safety      IntRange      `yaml:"safety"`
	EnergyHours int           `yaml:"energy_hours"`
	Energy      IntRange      `yaml:"energy"`
}

// DefaultPolicy parses the embedded default policy.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// DefaultPolicyYAML returns the embedded policy document.
func DefaultPolicyYAML() []byte {
	return append([]byte(nil), defaultPolicy...)
}

// LoadPolicy reads and validates a policy file. Modules missing from the file
// keep their default settings.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy overlays data on the default policy and validates the result.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(defaultPolicy, &p); err != nil {
		return nil, fmt.Errorf("parse default policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every module policy and reports all problems at once.
func (p *Policy) Validate() error {
	var errs []error
	check := func(module string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, module, err))
		}
	}

	check("security", p.Security.validate())
	check("city", p.City.validate())
	check("homes", p.Homes.validate())
	check("stations", p.Stations.validate())
	check("recycling", p.Recycling.validate())
	check("lighting", p.Lighting.validate())
	check("pedestrian", p.Pedestrian.validate())
	check("analytics", p.Analytics.validate())

	return errors.Join(errs...)
}

func positive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return nil
}

func capacity(name string, n int) error {
	if n < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", name, n)
	}
	return nil
}

func tiers(name string, t TierSet) error {
	if _, _, err := t.Build(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func spread(name string, r IntRange) error {
	if r.Spread < 1 {
		return fmt.Errorf("%s spread must be at least 1, got %d", name, r.Spread)
	}
	return nil
}

func (s SecurityPolicy) validate() error {
	if err := positive("interval", s.Interval); err != nil {
		return err
	}
	if s.DecayStep < 0 {
		return fmt.Errorf("negative decay step %g", s.DecayStep)
	}
	if len(s.Factors) == 0 {
		return errors.New("no risk factors configured")
	}
	names := make(map[string]bool, len(s.Factors))
	for _, f := range s.Factors {
		if f.Name == "" || names[f.Name] {
			return fmt.Errorf("factor name %q is empty or duplicated", f.Name)
		}
		names[f.Name] = true
	}
	components := make(map[string]bool, len(s.Components))
	for _, c := range s.Components {
		components[c] = true
	}
	for _, inc := range s.Incidents {
		if !names[inc.Factor] {
			return fmt.Errorf("incident %s: unknown factor %q", inc.Name, inc.Factor)
		}
		if inc.Health == "" {
			continue
		}
		if _, ok := models.ParseHealthStatus(inc.Health); !ok {
			return fmt.Errorf("incident %s: unknown health status %q", inc.Name, inc.Health)
		}
		if !components[inc.Component] {
			return fmt.Errorf("incident %s: unknown component %q", inc.Name, inc.Component)
		}
	}
	if err := tiers("tiers", s.Tiers); err != nil {
		return err
	}
	if err := capacity("threat_log", s.ThreatLog); err != nil {
		return err
	}
	return capacity("history", s.History)
}

func (c CityPolicy) validate() error {
	if err := positive("interval", c.Interval); err != nil {
		return err
	}
	if err := c.Stability.validate(true); err != nil {
		return fmt.Errorf("stability: %w", err)
	}
	if err := tiers("tiers", c.Tiers); err != nil {
		return err
	}
	if c.InsightChance < 0 || c.InsightChance > 1 {
		return fmt.Errorf("insight chance %g outside 0..1", c.InsightChance)
	}
	if len(c.Categories) == 0 {
		return errors.New("no prediction categories configured")
	}
	if len(c.Recommendations) == 0 {
		return errors.New("no recommendations configured")
	}
	if err := capacity("decision_log", c.DecisionLog); err != nil {
		return err
	}
	return capacity("forecast_size", c.ForecastSize)
}

func (h HomesPolicy) validate() error {
	for name, d := range map[string]time.Duration{
		"sensor_interval": h.SensorInterval,
		"chart_interval":  h.ChartInterval,
		"alert_interval":  h.AlertInterval,
	} {
		if err := positive(name, d); err != nil {
			return err
		}
	}
	for name, w := range map[string]WalkSpec{
		"gas": h.Gas, "smoke": h.Smoke, "temperature": h.Temperature, "humidity": h.Humidity,
	} {
		if err := w.validate(false); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := tiers("gas_tiers", h.GasTiers); err != nil {
		return err
	}
	if err := tiers("smoke_tiers", h.SmokeTiers); err != nil {
		return err
	}
	if _, err := Scorer(h.Risk); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	return capacity("history", h.History)
}

func (s StationsPolicy) validate() error {
	for name, d := range map[string]time.Duration{
		"stats_interval": s.StatsInterval,
		"bus_interval":   s.BusInterval,
		"rfid_interval":  s.RFIDInterval,
	} {
		if err := positive(name, d); err != nil {
			return err
		}
	}
	if s.Passengers.Step < 0 {
		return fmt.Errorf("passengers: negative step %g", s.Passengers.Step)
	}
	if s.ReleaseBelow > s.FullAt {
		return fmt.Errorf("release_below %d above full_at %d", s.ReleaseBelow, s.FullAt)
	}
	if err := tiers("occupancy", s.Occupancy); err != nil {
		return err
	}
	if err := spread("bus_reset", s.BusReset); err != nil {
		return err
	}
	if err := spread("pass_id", s.PassID); err != nil {
		return err
	}
	return capacity("rfid_log", s.RFIDLog)
}

func (r RecyclingPolicy) validate() error {
	if err := positive("interval", r.Interval); err != nil {
		return err
	}
	if r.IncrementMin > r.IncrementMax {
		return fmt.Errorf("increment_min %g above increment_max %g", r.IncrementMin, r.IncrementMax)
	}
	if len(r.Materials) == 0 {
		return errors.New("no materials configured")
	}
	total := 0.0
	for _, m := range r.Materials {
		total += m.Share
	}
	if math.Abs(total-1) > 1e-6 {
		return fmt.Errorf("material shares sum to %g, want 1", total)
	}
	if err := spread("bin_fill", r.BinFill); err != nil {
		return err
	}
	return tiers("tiers", r.Tiers)
}

func (l LightingPolicy) validate() error {
	if err := positive("interval", l.Interval); err != nil {
		return err
	}
	if err := l.Saving.validate(true); err != nil {
		return fmt.Errorf("saving: %w", err)
	}
	if l.PresenceChance < 0 || l.PresenceChance > 1 {
		return fmt.Errorf("presence_chance %g outside [0, 1]", l.PresenceChance)
	}
	if l.AutoMin > l.AutoMax {
		return fmt.Errorf("auto_min %d above auto_max %d", l.AutoMin, l.AutoMax)
	}
	return capacity("history", l.History)
}

func (p PedestrianPolicy) validate() error {
	if err := positive("interval", p.Interval); err != nil {
		return err
	}
	if p.AlertChance < 0 || p.AlertChance > 1 {
		return fmt.Errorf("alert_chance %g outside [0, 1]", p.AlertChance)
	}
	if err := capacity("alert_history", len(p.AlertHistory)); err != nil {
		return err
	}
	if err := tiers("tiers", p.Tiers); err != nil {
		return err
	}
	if err := tiers("speed_tiers", p.SpeedTiers); err != nil {
		return err
	}
	if err := spread("violation_speed", p.ViolationSpeed); err != nil {
		return err
	}
	return capacity("violation_log", p.ViolationLog)
}

func (a AnalyticsPolicy) validate() error {
	if err := positive("interval", a.Interval); err != nil {
		return err
	}
	for name, n := range map[string]int{
		"days": a.Days, "safety_days": a.SafetyDays, "energy_hours": a.EnergyHours,
	} {
		if err := capacity(name, n); err != nil {
			return err
		}
	}
	if len(a.Recycling) == 0 {
		return errors.New("no recycling materials configured")
	}
	for _, r := range a.Recycling {
		if r.Name == "" {
			return errors.New("recycling series name is empty")
		}
		if err := spread("recycling "+r.Name, r.Range()); err != nil {
			return err
		}
	}
	if err := spread("safety", a.Safety); err != nil {
		return err
	}
	return spread("energy", a.Energy)
}
