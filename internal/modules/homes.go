package modules

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/registry"
	"github.com/raphaelgruber/citypulse/internal/risk"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// Alert conditions tracked per home.
const (
	ConditionGas   = "gas"
	ConditionSmoke = "smoke"
)

// Homes monitors registered residences for gas, smoke and climate readings.
type Homes struct {
	base
	policy config.HomesPolicy

	reg         *registry.Registry[models.Home]
	gasTiers    *tier.Classifier
	smokeTiers  *tier.Classifier
	gasAlerts   *alert.Deduplicator
	smokeAlerts *alert.Deduplicator
	scorer      *risk.Scorer
	series      *telemetry.Series

	emergency bool
}

// HomeQuery selects and orders homes for display.
type HomeQuery struct {
	// Search matches id, owner, contact and address.
	Search string
	// Status keeps only homes in this status when set.
	Status models.HomeStatus
	// ByRisk sorts by descending risk score.
	ByRisk bool
}

// HomesSnapshot holds the KPI counts and charts of the home security page.
type HomesSnapshot struct {
	Total       int
	Safe        int
	Warning     int
	Critical    int
	AverageRisk float64
	Emergency   bool
	OpenAlerts  []alert.Open
	Temperature []float64
	Humidity    []float64
}

// NewHomes builds the home monitor and registers the seed homes.
func NewHomes(p config.HomesPolicy, d Deps) (*Homes, error) {
	gasTiers, gasAt, err := p.GasTiers.Build()
	if err != nil {
		return nil, fmt.Errorf("homes gas tiers: %w", err)
	}
	smokeTiers, smokeAt, err := p.SmokeTiers.Build()
	if err != nil {
		return nil, fmt.Errorf("homes smoke tiers: %w", err)
	}
	scorer, err := config.Scorer(p.Risk)
	if err != nil {
		return nil, fmt.Errorf("homes risk rules: %w", err)
	}
	if p.History < 1 {
		return nil, fmt.Errorf("homes history: %w", ErrInvalidInput)
	}

	h := &Homes{
		base:        newBase("homes", d),
		policy:      p,
		reg:         registry.New[models.Home]("H", p.FirstID),
		gasTiers:    gasTiers,
		smokeTiers:  smokeTiers,
		gasAlerts:   alert.New(gasAt),
		smokeAlerts: alert.New(smokeAt),
		scorer:      scorer,
		series:      telemetry.NewSeries(),
	}
	h.reg.OnRemove(func(id string) {
		h.gasAlerts.Forget(id)
		h.smokeAlerts.Forget(id)
	})

	h.series.Register("temperature", p.History)
	h.series.Register("humidity", p.History)
	for range p.History {
		h.series.Append("temperature", p.TemperatureCenter+(h.src.Float64()-0.5)*p.TemperatureSpread)
		h.series.Append("humidity", p.HumidityCenter+(h.src.Float64()-0.5)*p.HumiditySpread)
	}

	now := h.now()
	for _, in := range homeSeeds {
		h.add(in, now)
	}
	h.pending = nil
	return h, nil
}

// Schedules returns the sensor, chart and alert-check ticks.
func (h *Homes) Schedules() []Schedule {
	return []Schedule{
		{Name: "sensors", Interval: h.policy.SensorInterval, Tick: h.tickSensors},
		{Name: "chart", Interval: h.policy.ChartInterval, Tick: h.tickChart},
		{Name: "alerts", Interval: h.policy.AlertInterval, Tick: h.tickAlerts},
	}
}

func (h *Homes) tickSensors(now time.Time) {
	h.locked(func() {
		if h.emergency {
			return
		}
		h.reg.Each(func(_ string, home *models.Home) {
			home.Gas = h.walk(h.policy.Gas, "gas", home.Gas)
			home.Smoke = h.walk(h.policy.Smoke, "smoke", home.Smoke)
			home.Temperature = h.walk(h.policy.Temperature, "temperature", home.Temperature)
			home.Humidity = h.walk(h.policy.Humidity, "humidity", home.Humidity)
			h.assess(home, now)
		})
	})
}

func (h *Homes) walk(w config.WalkSpec, name string, value float64) float64 {
	m := w.Metric(name, value)
	return m.Step(h.src)
}

// assess recomputes status and risk score. Caller must hold the lock.
func (h *Homes) assess(home *models.Home, now time.Time) {
	if h.emergency {
		home.Status = models.HomeEmergency
	} else {
		home.Status = models.HomeStatus(h.level(*home).Name)
	}
	home.Risk = h.scorer.Score(home.Readings())
	home.UpdatedAt = now
}

// level is the worse of the gas and smoke tiers.
func (h *Homes) level(home models.Home) tier.Level {
	return tier.Worst(h.gasTiers.Classify(home.Gas), h.smokeTiers.Classify(home.Smoke))
}

func (h *Homes) tickChart(now time.Time) {
	h.locked(func() {
		n := h.reg.Len()
		if n == 0 {
			return
		}
		var temp, hum float64
		h.reg.Each(func(_ string, home *models.Home) {
			temp += home.Temperature
			hum += home.Humidity
		})
		temp /= float64(n)
		hum /= float64(n)

		h.series.Append("temperature", temp)
		h.series.Append("humidity", hum)
		h.emitSample(now, "temperature", temp)
		h.emitSample(now, "humidity", hum)
	})
}

func (h *Homes) tickAlerts(now time.Time) {
	h.locked(func() {
		if h.emergency {
			return
		}
		h.reg.Each(func(id string, home *models.Home) {
			h.check(id, home, now)
		})
	})
}

// check feeds both conditions of one home to the deduplicators.
// Caller must hold the lock.
func (h *Homes) check(id string, home *models.Home, now time.Time) {
	h.observe(now, h.gasAlerts, id, ConditionGas, h.gasTiers.Classify(home.Gas), home.Gas)
	h.observe(now, h.smokeAlerts, id, ConditionSmoke, h.smokeTiers.Classify(home.Smoke), home.Smoke)
}

func (h *Homes) add(in models.HomeInput, now time.Time) string {
	home := models.Home{
		Owner:       strings.TrimSpace(in.Owner),
		Contact:     strings.TrimSpace(in.Contact),
		Address:     strings.TrimSpace(in.Address),
		Gas:         telemetry.Clamp(in.Gas, h.policy.Gas.Min, h.policy.Gas.Max),
		Smoke:       telemetry.Clamp(in.Smoke, h.policy.Smoke.Min, h.policy.Smoke.Max),
		Temperature: telemetry.Clamp(in.Temperature, h.policy.Temperature.Min, h.policy.Temperature.Max),
		Humidity:    telemetry.Clamp(in.Humidity, h.policy.Humidity.Min, h.policy.Humidity.Max),
	}
	h.assess(&home, now)
	id := h.reg.Add(home)
	h.emitScore(now, id, float64(home.Risk), h.level(home))
	return id
}

// AddHome registers a home and returns its id. Sensor values are clamped to
// the walk bounds.
func (h *Homes) AddHome(in models.HomeInput) (string, error) {
	if strings.TrimSpace(in.Owner) == "" {
		return "", fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	var id string
	h.locked(func() {
		id = h.add(in, h.now())
		h.logger.Info("home added", "id", id, "owner", in.Owner)
	})
	return id, nil
}

// UpdateHome edits a home. Unknown ids return registry.ErrNotFound.
func (h *Homes) UpdateHome(id string, u models.HomeUpdate) error {
	if u.Owner != nil && strings.TrimSpace(*u.Owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	return h.lockedErr(func() error {
		now := h.now()
		err := h.reg.Update(id, func(home *models.Home) {
			u.Apply(home)
			home.Gas = telemetry.Clamp(home.Gas, h.policy.Gas.Min, h.policy.Gas.Max)
			home.Smoke = telemetry.Clamp(home.Smoke, h.policy.Smoke.Min, h.policy.Smoke.Max)
			home.Temperature = telemetry.Clamp(home.Temperature, h.policy.Temperature.Min, h.policy.Temperature.Max)
			home.Humidity = telemetry.Clamp(home.Humidity, h.policy.Humidity.Min, h.policy.Humidity.Max)
			h.assess(home, now)
			h.emitScore(now, id, float64(home.Risk), h.level(*home))
		})
		if err != nil {
			return fmt.Errorf("update home: %w", err)
		}
		h.logger.Info("home updated", "id", id)
		return nil
	})
}

// RemoveHome deletes a home and silently drops its alert state.
func (h *Homes) RemoveHome(id string) error {
	return h.lockedErr(func() error {
		if err := h.reg.Remove(id); err != nil {
			return fmt.Errorf("remove home: %w", err)
		}
		h.logger.Info("home removed", "id", id)
		return nil
	})
}

// Home returns one home.
func (h *Homes) Home(id string) (models.Home, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reg.Get(id)
}

// EmergencyShutdown isolates gas and power in every home: readings drop to
// zero, alert state is cleared without events and sensor ticks pause.
func (h *Homes) EmergencyShutdown() {
	h.locked(func() {
		h.emergency = true
		h.gasAlerts.Reset()
		h.smokeAlerts.Reset()
		now := h.now()
		h.reg.Each(func(_ string, home *models.Home) {
			home.Gas = 0
			home.Smoke = 0
			h.assess(home, now)
		})
		h.logger.Warn("emergency shutdown activated", "homes", h.reg.Len())
	})
}

// Resume leaves emergency mode and restarts sensor ticks.
func (h *Homes) Resume() {
	h.locked(func() {
		if !h.emergency {
			return
		}
		h.emergency = false
		now := h.now()
		h.reg.Each(func(_ string, home *models.Home) {
			h.assess(home, now)
		})
		h.logger.Info("emergency mode lifted")
	})
}

// Emergency reports whether an emergency shutdown is active.
func (h *Homes) Emergency() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.emergency
}

// List returns a filtered, searched and optionally sorted view.
func (h *Homes) List(q HomeQuery) []registry.Entry[models.Home] {
	h.mu.Lock()
	entries := h.reg.List()
	h.mu.Unlock()

	entries = registry.Search(entries, q.Search, func(home models.Home) []string {
		return []string{home.Owner, home.Contact, home.Address}
	})
	if q.Status != "" {
		entries = registry.Filter(entries, func(home models.Home) bool {
			return strings.EqualFold(string(home.Status), string(q.Status))
		})
	}
	if q.ByRisk {
		entries = registry.SortBy(entries, func(a, b models.Home) int {
			return cmp.Compare(b.Risk, a.Risk)
		})
	}
	return entries
}

// Snapshot returns KPI counts, open alerts and climate charts.
func (h *Homes) Snapshot() HomesSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := HomesSnapshot{
		Total:       h.reg.Len(),
		Emergency:   h.emergency,
		OpenAlerts:  append(h.gasAlerts.Open(), h.smokeAlerts.Open()...),
		Temperature: h.series.Snapshot("temperature"),
		Humidity:    h.series.Snapshot("humidity"),
	}
	total := 0
	h.reg.Each(func(_ string, home *models.Home) {
		switch home.Status {
		case models.HomeSafe:
			snap.Safe++
		case models.HomeWarning:
			snap.Warning++
		case models.HomeCritical:
			snap.Critical++
		}
		total += home.Risk
	})
	if snap.Total > 0 {
		snap.AverageRisk = float64(total) / float64(snap.Total)
	}
	return snap
}
