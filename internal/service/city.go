// Package service wires the city modules to their clocks and to each other.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/raphaelgruber/citypulse/internal/clock"
	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/metrics"
	"github.com/raphaelgruber/citypulse/internal/modules"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
)

// minInterval bounds scaled clock periods.
const minInterval = time.Millisecond

// Options configure a CityService.
type Options struct {
	Policy *config.Policy
	// Seed makes every module source deterministic. Zero seeds from the clock.
	Seed uint64
	// TimeScale divides every schedule interval. Values <= 0 mean 1.
	TimeScale float64
	Logger    *slog.Logger
	Now       func() time.Time
}

// CityService owns the modules of one simulated city and the clocks that
// drive them.
type CityService struct {
	logger  *slog.Logger
	policy  *config.Policy
	bus     *events.Bus
	metrics *metrics.Collector

	Security   *modules.Security
	City       *modules.City
	Homes      *modules.Homes
	Stations   *modules.Stations
	Recycling  *modules.Recycling
	Lighting   *modules.Lighting
	Pedestrian *modules.Pedestrian
	Analytics  *modules.Analytics

	modules []modules.Module
	clocks  []*clock.Clock
	unsub   []func()

	mu      sync.Mutex
	running bool
}

// New builds every module from the policy. A misconfigured module fails
// construction before any clock exists.
func New(opts Options) (*CityService, error) {
	if opts.Policy == nil {
		p, err := config.DefaultPolicy()
		if err != nil {
			return nil, err
		}
		opts.Policy = p
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}

	s := &CityService{
		logger:  opts.Logger,
		policy:  opts.Policy,
		bus:     events.NewBus(),
		metrics: metrics.NewCollector(),
	}
	deps := func(name string) modules.Deps {
		return modules.Deps{
			Bus:    s.bus,
			Source: telemetry.NewSource(telemetry.Derive(opts.Seed, name)),
			Logger: opts.Logger,
			Now:    opts.Now,
		}
	}

	p := opts.Policy
	var err error
	if s.Security, err = modules.NewSecurity(p.Security, deps("security")); err != nil {
		return nil, fmt.Errorf("build security: %w", err)
	}
	if s.City, err = modules.NewCity(p.City, deps("city")); err != nil {
		return nil, fmt.Errorf("build city: %w", err)
	}
	if s.Homes, err = modules.NewHomes(p.Homes, deps("homes")); err != nil {
		return nil, fmt.Errorf("build homes: %w", err)
	}
	if s.Stations, err = modules.NewStations(p.Stations, deps("stations")); err != nil {
		return nil, fmt.Errorf("build stations: %w", err)
	}
	if s.Recycling, err = modules.NewRecycling(p.Recycling, deps("recycling")); err != nil {
		return nil, fmt.Errorf("build recycling: %w", err)
	}
	if s.Lighting, err = modules.NewLighting(p.Lighting, deps("lighting")); err != nil {
		return nil, fmt.Errorf("build lighting: %w", err)
	}
	if s.Pedestrian, err = modules.NewPedestrian(p.Pedestrian, deps("pedestrian")); err != nil {
		return nil, fmt.Errorf("build pedestrian: %w", err)
	}
	if s.Analytics, err = modules.NewAnalytics(p.Analytics, deps("analytics")); err != nil {
		return nil, fmt.Errorf("build analytics: %w", err)
	}
	s.modules = []modules.Module{
		s.Security, s.City, s.Homes, s.Stations,
		s.Recycling, s.Lighting, s.Pedestrian, s.Analytics,
	}

	timed := clock.Timed(s.metrics, opts.Logger)
	for _, m := range s.modules {
		for _, sched := range m.Schedules() {
			interval := max(time.Duration(float64(sched.Interval)/opts.TimeScale), minInterval)
			c := clock.New(m.Name()+"."+sched.Name, interval, opts.Logger)
			c.Use(timed)
			tick := sched.Tick
			c.Subscribe(func(_ context.Context, t clock.Tick) { tick(t.At) })
			s.clocks = append(s.clocks, c)
		}
	}

	s.unsub = append(s.unsub, s.bus.Subscribe(s.metrics.RecordEvent), s.bus.Subscribe(s.escalate))
	return s, nil
}

// Start launches every clock. Calling Start on a running service is a no-op.
func (s *CityService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	for _, c := range s.clocks {
		c.Start(ctx)
	}
	s.logger.Info("city simulation started", "modules", len(s.modules), "clocks", len(s.clocks))
}

// Stop halts every clock and waits for ticks in flight. It is idempotent.
func (s *CityService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clocks {
		c.Stop()
	}
	for _, c := range s.clocks {
		<-c.Done()
	}
	for _, u := range s.unsub {
		u()
	}
	s.unsub = nil
	if s.running {
		s.logger.Info("city simulation stopped")
	}
	s.running = false
}

// Step fires every clock once at now, in construction order. Stopped clocks
// are skipped.
func (s *CityService) Step(ctx context.Context, now time.Time) {
	for _, c := range s.clocks {
		c.Fire(ctx, now)
	}
}

// Advance replays d of virtual time from start without waiting: every clock
// fires once per elapsed interval, all firings in time order. It returns the
// new virtual time.
func (s *CityService) Advance(ctx context.Context, start time.Time, d time.Duration) time.Time {
	type firing struct {
		at time.Time
		c  *clock.Clock
	}
	var plan []firing
	for _, c := range s.clocks {
		for at := start.Add(c.Interval()); !at.After(start.Add(d)); at = at.Add(c.Interval()) {
			plan = append(plan, firing{at: at, c: c})
		}
	}
	slices.SortStableFunc(plan, func(a, b firing) int { return a.at.Compare(b.at) })

	for _, f := range plan {
		if ctx.Err() != nil {
			break
		}
		f.c.Fire(ctx, f.at)
	}
	return start.Add(d)
}

// Bus returns the event bus presentation adapters subscribe to.
func (s *CityService) Bus() *events.Bus { return s.bus }

// Metrics returns the runtime statistics collector.
func (s *CityService) Metrics() *metrics.Collector { return s.metrics }

// Policy returns the policy the modules were built from.
func (s *CityService) Policy() *config.Policy { return s.policy }

// Modules returns every module in construction order.
func (s *CityService) Modules() []modules.Module {
	return append([]modules.Module(nil), s.modules...)
}

// Clocks returns every clock in construction order.
func (s *CityService) Clocks() []*clock.Clock {
	return append([]*clock.Clock(nil), s.clocks...)
}
