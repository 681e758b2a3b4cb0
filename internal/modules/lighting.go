package modules

import (
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/registry"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// ConditionMaintenance is the alert condition of a failed streetlight.
const ConditionMaintenance = "maintenance"

// LightingMode selects how active poles pick their intensity.
type LightingMode string

// Lighting modes.
const (
	ModeAuto   LightingMode = "auto"
	ModeEco    LightingMode = "eco"
	ModeManual LightingMode = "manual"
)

// ParseLightingMode accepts a mode name case-insensitively.
func ParseLightingMode(s string) (LightingMode, error) {
	switch m := LightingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeEco, ModeManual:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown lighting mode %q", ErrInvalidInput, s)
}

// Lighting simulates adaptive streetlights and the energy they save.
type Lighting struct {
	base
	policy config.LightingPolicy

	saving  telemetry.Metric
	history *telemetry.Ring[float64]
	poles   *registry.Registry[models.Streetlight]
	status  *tier.Classifier
	dedup   *alert.Deduplicator

	mode   LightingMode
	manual int
}

// LightingSnapshot is a read-only view of the lighting network.
type LightingSnapshot struct {
	Mode             LightingMode
	ManualIntensity  int
	EnergySaved      float64
	History          []float64
	Poles            []registry.Entry[models.Streetlight]
	Active           int
	AverageIntensity float64
	OpenAlerts       []alert.Open
}

// NewLighting builds the lighting controller with the seed poles in auto mode.
func NewLighting(p config.LightingPolicy, d Deps) (*Lighting, error) {
	if p.History < 1 {
		return nil, fmt.Errorf("lighting history: %w", ErrInvalidInput)
	}
	status := tier.MustNew([]tier.Cutoff{{Tier: string(models.PoleActive), Below: 1}}, string(models.PoleMaintenance))

	l := &Lighting{
		base:    newBase("lighting", d),
		policy:  p,
		saving:  p.Saving.Metric("energy_saved", p.Saving.Initial),
		history: telemetry.NewRing[float64](p.History),
		poles:   registry.New[models.Streetlight]("POLE", 1, registry.Padded(3)),
		status:  status,
		dedup:   alert.New(status.Highest()),
		mode:    ModeAuto,
		manual:  p.ManualInit,
	}
	for range p.History {
		l.history.Push(p.HistoryMin + l.src.Float64()*p.HistorySpread)
	}
	for _, pole := range poleSeeds {
		l.poles.Add(pole)
	}
	return l, nil
}

// Schedules returns the control tick.
func (l *Lighting) Schedules() []Schedule {
	return []Schedule{{Name: "control", Interval: l.policy.Interval, Tick: l.tick}}
}

func (l *Lighting) tick(now time.Time) {
	l.locked(func() {
		saved := l.saving.Step(l.src)
		l.history.Push(saved)
		l.emitSample(now, "energy_saved", saved)

		l.poles.Each(func(id string, pole *models.Streetlight) {
			if pole.Status == models.PoleActive {
				pole.Presence = telemetry.Chance(l.src, l.policy.PresenceChance)
				pole.Intensity = l.intensity(*pole)
			}
			l.check(id, pole, now)
		})
	})
}

// intensity picks the next intensity of an active pole for the current mode.
func (l *Lighting) intensity(pole models.Streetlight) int {
	p := l.policy
	switch l.mode {
	case ModeEco:
		if pole.Presence {
			return p.EcoActive
		}
		return p.EcoIdle
	case ModeManual:
		return l.manual
	default:
		if pole.Presence {
			return min(pole.Intensity+p.AutoStep, p.AutoMax)
		}
		return max(pole.Intensity-p.AutoDecay, p.AutoMin)
	}
}

// check feeds the maintenance alert of one pole. Caller must hold the lock.
func (l *Lighting) check(id string, pole *models.Streetlight, now time.Time) {
	lvl := l.status.Lowest()
	if pole.Status == models.PoleMaintenance {
		lvl = l.status.Highest()
	}
	l.observe(now, l.dedup, id, ConditionMaintenance, lvl, float64(pole.Intensity))
}

// SetMode switches the lighting mode. Active poles adopt it on the next tick.
func (l *Lighting) SetMode(mode LightingMode) error {
	if _, err := ParseLightingMode(string(mode)); err != nil {
		return err
	}
	l.locked(func() {
		l.mode = mode
		l.logger.Info("lighting mode changed", "mode", mode)
	})
	return nil
}

// SetManualIntensity sets the slider used in manual mode.
func (l *Lighting) SetManualIntensity(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: intensity %d outside 0..100", ErrInvalidInput, v)
	}
	l.locked(func() {
		l.manual = v
	})
	return nil
}

// FailPole puts a pole into maintenance with its light off.
func (l *Lighting) FailPole(id string) error {
	return l.lockedErr(func() error {
		return l.fail(id)
	})
}

func (l *Lighting) fail(id string) error {
	now := l.now()
	err := l.poles.Update(id, func(pole *models.Streetlight) {
		pole.Status = models.PoleMaintenance
		pole.Intensity = 0
		pole.Presence = false
		l.check(id, pole, now)
	})
	if err != nil {
		return fmt.Errorf("fail pole: %w", err)
	}
	l.logger.Warn("pole failed", "id", id)
	return nil
}

// FailRandomPole fails one active pole chosen at random and returns its id.
func (l *Lighting) FailRandomPole() (string, error) {
	var id string
	err := l.lockedErr(func() error {
		active := registry.Filter(l.poles.List(), func(p models.Streetlight) bool {
			return p.Status == models.PoleActive
		})
		if len(active) == 0 {
			return fmt.Errorf("%w: no active poles", ErrInvalidInput)
		}
		id = active[telemetry.IntRange(l.src, 0, len(active))].ID
		return l.fail(id)
	})
	return id, err
}

// RepairPole returns a pole to service at the minimum auto intensity.
func (l *Lighting) RepairPole(id string) error {
	return l.lockedErr(func() error {
		now := l.now()
		err := l.poles.Update(id, func(pole *models.Streetlight) {
			pole.Status = models.PoleActive
			pole.Intensity = l.policy.AutoMin
			l.check(id, pole, now)
		})
		if err != nil {
			return fmt.Errorf("repair pole: %w", err)
		}
		l.logger.Info("pole repaired", "id", id)
		return nil
	})
}

// Snapshot returns the mode, savings history and pole states.
func (l *Lighting) Snapshot() LightingSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := LightingSnapshot{
		Mode:            l.mode,
		ManualIntensity: l.manual,
		EnergySaved:     l.saving.Value,
		History:         l.history.Snapshot(),
		Poles:           l.poles.List(),
		OpenAlerts:      l.dedup.Open(),
	}
	total := 0
	for _, e := range snap.Poles {
		if e.Value.Status == models.PoleActive {
			snap.Active++
			total += e.Value.Intensity
		}
	}
	if snap.Active > 0 {
		snap.AverageIntensity = float64(total) / float64(snap.Active)
	}
	return snap
}
