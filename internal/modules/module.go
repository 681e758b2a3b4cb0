// Package modules implements the simulated city subsystems. Each module owns
// its state, walks it on one or more schedules and publishes what changed.
package modules

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// Errors surfaced to the presentation layer.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownIncident = errors.New("unknown incident")
)

// Schedule is one periodic handler of a module.
type Schedule struct {
	Name     string
	Interval time.Duration
	Tick     func(now time.Time)
}

// Module is a simulated city subsystem.
type Module interface {
	Name() string
	Schedules() []Schedule
}

// Deps are the collaborators every module needs.
type Deps struct {
	Bus    *events.Bus
	Source telemetry.Source
	Logger *slog.Logger
	// Now stamps events raised by user actions. Defaults to time.Now.
	Now func() time.Time
}

// base carries the lock, event buffer and collaborators shared by modules.
type base struct {
	name string
	mu   sync.Mutex

	bus    *events.Bus
	src    telemetry.Source
	logger *slog.Logger
	now    func() time.Time

	pending []events.Event
}

func newBase(name string, d Deps) base {
	if d.Bus == nil {
		d.Bus = events.NewBus()
	}
	if d.Source == nil {
		d.Source = telemetry.NewSource(0)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return base{
		name:   name,
		bus:    d.Bus,
		src:    d.Source,
		logger: d.Logger.With("module", name),
		now:    d.Now,
	}
}

// Name returns the module name.
func (b *base) Name() string { return b.name }

// locked runs fn under the module lock and publishes the events it queued
// once the lock is released.
func (b *base) locked(fn func()) {
	b.bus.Publish(b.collect(fn)...)
}

// collect runs fn under the lock and drains the events it queued. The lock
// is released even if fn panics; events of a panicked call are dropped on
// the next one.
func (b *base) collect(fn func()) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = nil
	fn()
	evs := b.pending
	b.pending = nil
	return evs
}

// lockedErr is locked for actions that can fail. Queued events are published
// even when fn returns an error.
func (b *base) lockedErr(fn func() error) error {
	var err error
	b.locked(func() { err = fn() })
	return err
}

// Caller must hold the lock for the emit helpers.

func (b *base) emit(ev events.Event) {
	ev.Module = b.name
	b.pending = append(b.pending, ev)
}

func (b *base) emitScore(now time.Time, entityID string, value float64, level tier.Level) {
	b.emit(events.Event{
		Kind:     events.ScoreUpdated,
		EntityID: entityID,
		Severity: level.Name,
		Value:    value,
		At:       now,
	})
}

func (b *base) emitSample(now time.Time, series string, value float64) {
	b.emit(events.Event{
		Kind:   events.SampleAppended,
		Series: series,
		Value:  value,
		At:     now,
	})
}

// transition publishes a dedup state change and logs it.
func (b *base) transition(now time.Time, tr alert.Transition, value float64) {
	kind := events.AlertCleared
	if tr.Raised() {
		kind = events.AlertRaised
		b.logger.Warn("alert raised",
			"entity", tr.EntityID, "condition", tr.Condition, "severity", tr.Severity.Name, "value", value)
	} else {
		b.logger.Info("alert cleared",
			"entity", tr.EntityID, "condition", tr.Condition, "value", value)
	}
	b.emit(events.Event{
		Kind:      kind,
		EntityID:  tr.EntityID,
		Condition: tr.Condition,
		Severity:  tr.Severity.Name,
		Value:     value,
		At:        now,
	})
}

// observe feeds a dedup and emits any transition.
func (b *base) observe(now time.Time, d *alert.Deduplicator, entityID, condition string, level tier.Level, value float64) {
	if tr, ok := d.Observe(entityID, condition, level); ok {
		b.transition(now, tr, value)
	}
}
