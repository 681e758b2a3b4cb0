package modules

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// recorder collects every event published on a bus.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// matching returns events of kind k, optionally narrowed to one entity and
// condition.
func (r *recorder) matching(k events.Kind, entityID, condition string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Kind != k {
			continue
		}
		if entityID != "" && ev.EntityID != entityID {
			continue
		}
		if condition != "" && ev.Condition != condition {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// testDeps returns deps replaying draws and a recorder subscribed to the bus.
func testDeps(draws ...float64) (Deps, *recorder) {
	bus := events.NewBus()
	rec := &recorder{}
	bus.Subscribe(rec.handle)
	return Deps{
		Bus:    bus,
		Source: telemetry.NewSequence(draws...),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return testNow },
	}, rec
}

func testPolicy(t *testing.T) *config.Policy {
	t.Helper()
	p, err := config.DefaultPolicy()
	require.NoError(t, err)
	return p
}

// tick runs the named schedule of a module once.
func tick(t *testing.T, m Module, name string) {
	t.Helper()
	for _, s := range m.Schedules() {
		if s.Name == name {
			s.Tick(testNow)
			return
		}
	}
	t.Fatalf("module %s has no schedule %q", m.Name(), name)
}
