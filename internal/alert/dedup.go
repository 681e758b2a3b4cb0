// Package alert suppresses repeated notifications while a condition persists.
package alert

import (
	"sort"

	"github.com/raphaelgruber/citypulse/internal/tier"
)

// State of one (entity, condition) pair.
type State int

const (
	Clear State = iota
	Alerting
)

func (s State) String() string {
	if s == Alerting {
		return "alerting"
	}
	return "clear"
}

// Transition is emitted when a pair changes state.
type Transition struct {
	EntityID  string
	Condition string
	To        State
	// Severity is the tier observed on the transition.
	Severity tier.Level
}

// Raised reports whether the transition opened an alert.
func (t Transition) Raised() bool { return t.To == Alerting }

type key struct {
	entity    string
	condition string
}

// Deduplicator tracks open alerts per (entity, condition).
// Not safe for concurrent use; owners serialise access.
type Deduplicator struct {
	alertAt tier.Level
	open    map[key]tier.Level
}

// New creates a deduplicator that alerts at or above alertAt.
func New(alertAt tier.Level) *Deduplicator {
	return &Deduplicator{alertAt: alertAt, open: make(map[key]tier.Level)}
}

// Threshold returns the tier at which alerts open.
func (d *Deduplicator) Threshold() tier.Level { return d.alertAt }

// Observe feeds a newly classified level. A transition is returned only when
// the pair enters or leaves the alerting state.
func (d *Deduplicator) Observe(entityID, condition string, level tier.Level) (Transition, bool) {
	k := key{entityID, condition}
	_, alerting := d.open[k]
	hit := level.AtLeast(d.alertAt)

	switch {
	case hit && !alerting:
		d.open[k] = level
		return Transition{EntityID: entityID, Condition: condition, To: Alerting, Severity: level}, true
	case !hit && alerting:
		delete(d.open, k)
		return Transition{EntityID: entityID, Condition: condition, To: Clear, Severity: level}, true
	case hit:
		// Track escalation without re-raising.
		d.open[k] = level
	}
	return Transition{}, false
}

// Forget drops every condition tracked for an entity. No transition is emitted.
func (d *Deduplicator) Forget(entityID string) {
	for k := range d.open {
		if k.entity == entityID {
			delete(d.open, k)
		}
	}
}

// Reset drops all tracked state silently.
func (d *Deduplicator) Reset() {
	clear(d.open)
}

// Alerting reports whether a pair is currently open.
func (d *Deduplicator) Alerting(entityID, condition string) bool {
	_, ok := d.open[key{entityID, condition}]
	return ok
}

// Open is a currently alerting pair.
type Open struct {
	EntityID  string
	Condition string
	Severity  tier.Level
}

// Open lists open alerts sorted by entity then condition.
func (d *Deduplicator) Open() []Open {
	out := make([]Open, 0, len(d.open))
	for k, lvl := range d.open {
		out = append(out, Open{EntityID: k.entity, Condition: k.condition, Severity: lvl})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Condition < out[j].Condition
	})
	return out
}

// Count returns the number of open alerts.
func (d *Deduplicator) Count() int { return len(d.open) }
