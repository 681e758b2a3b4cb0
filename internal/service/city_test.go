package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/modules"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts Options) *CityService {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestClocksPerSchedule(t *testing.T) {
	s := newTestService(t, Options{TimeScale: 10})

	clocks := s.Clocks()
	require.Len(t, clocks, 12)

	byName := make(map[string]time.Duration)
	for _, c := range clocks {
		byName[c.Name()] = c.Interval()
	}
	assert.Equal(t, 400*time.Millisecond, byName["homes.sensors"])
	assert.Equal(t, 100*time.Millisecond, byName["stations.bus"])
	assert.Equal(t, time.Second, byName["analytics.charts"])
	assert.Contains(t, byName, "security.monitor")
	assert.Len(t, s.Modules(), 8)
}

func TestInvalidPolicyFailsConstruction(t *testing.T) {
	p, err := config.DefaultPolicy()
	require.NoError(t, err)
	p.Homes.History = 0

	_, err = New(Options{Policy: p, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.Error(t, err)
	assert.ErrorIs(t, err, modules.ErrInvalidInput)
	assert.Contains(t, err.Error(), "build homes")
}

func TestEscalation(t *testing.T) {
	tests := []struct {
		name    string
		trigger func(s *CityService) error
		drop    int
	}{
		{"pole failure", func(s *CityService) error { return s.Lighting.FailPole("POLE-001") }, 4},
		{"bin overflow", func(s *CityService) error { return s.Recycling.SetFill("BIN-001", 95) }, 5},
		{"speed violation", func(s *CityService) error {
			s.Pedestrian.SimulateViolation()
			return nil
		}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, Options{})
			before := s.Security.Snapshot().Score

			require.NoError(t, tt.trigger(s))

			assert.Equal(t, before-tt.drop, s.Security.Snapshot().Score)
		})
	}
}

func TestEscalationIgnoresRepeats(t *testing.T) {
	s := newTestService(t, Options{})
	require.NoError(t, s.Lighting.FailPole("POLE-001"))
	after := s.Security.Snapshot().Score

	require.NoError(t, s.Recycling.SetFill("BIN-001", 20))
	require.NoError(t, s.Lighting.RepairPole("POLE-001"))
	assert.Equal(t, after, s.Security.Snapshot().Score)
}

func TestStepFiresEveryClock(t *testing.T) {
	s := newTestService(t, Options{})
	ch, cancel := s.Bus().Channel(1024)
	defer cancel()

	s.Step(context.Background(), testNow)

	snap := s.Metrics().Snapshot()
	assert.Len(t, snap.Ticks, 12)
	for _, op := range snap.Ticks {
		assert.Equal(t, int64(1), op.Count, op.Name)
	}
	assert.NotZero(t, snap.Events[events.ScoreUpdated])
	assert.NotEmpty(t, ch)
}

func TestSeedIsDeterministic(t *testing.T) {
	a := newTestService(t, Options{Seed: 7})
	b := newTestService(t, Options{Seed: 7})

	for range 5 {
		a.Step(context.Background(), testNow)
		b.Step(context.Background(), testNow)
	}
	assert.Equal(t, a.Homes.List(modules.HomeQuery{}), b.Homes.List(modules.HomeQuery{}))
	assert.Equal(t, a.Stations.Snapshot(), b.Stations.Snapshot())
	assert.Equal(t, a.Security.Snapshot(), b.Security.Snapshot())
}

func TestStartStop(t *testing.T) {
	s := newTestService(t, Options{TimeScale: 1000})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Start(ctx)
	require.Eventually(t, func() bool {
		return len(s.Metrics().Snapshot().Ticks) > 0
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	for _, c := range s.Clocks() {
		select {
		case <-c.Done():
		default:
			t.Fatalf("clock %s still running", c.Name())
		}
	}
}

func TestAdvanceFiresPerInterval(t *testing.T) {
	s := newTestService(t, Options{})

	end := s.Advance(context.Background(), testNow, 30*time.Second)
	assert.Equal(t, testNow.Add(30*time.Second), end)

	counts := make(map[string]int64)
	for _, op := range s.Metrics().Snapshot().Ticks {
		counts[op.Name] = op.Count
	}
	assert.Equal(t, int64(30), counts["stations.bus"])
	assert.Equal(t, int64(7), counts["homes.sensors"])
	assert.Equal(t, int64(6), counts["security.monitor"])
	assert.Equal(t, int64(3), counts["city.intelligence"])
	assert.Equal(t, int64(3), counts["analytics.charts"])
	assert.Equal(t, 150, s.Stations.Snapshot().BusETA)
}

func TestAdvanceStopsOnCancel(t *testing.T) {
	s := newTestService(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Advance(ctx, testNow, time.Minute)
	assert.Empty(t, s.Metrics().Snapshot().Ticks)
}
