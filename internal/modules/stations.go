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
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// ConditionFull is the alert condition of a station at capacity.
const ConditionFull = "full"

// Stations simulates transit stations: passenger counts, a bus arrival
// countdown and RFID gate taps.
type Stations struct {
	base
	policy config.StationsPolicy

	reg       *registry.Registry[models.Station]
	occupancy *tier.Classifier
	status    *tier.Classifier
	dedup     *alert.Deduplicator
	taps      *telemetry.Ring[models.TapEvent]

	busETA int
}

// StationQuery selects stations for display.
type StationQuery struct {
	Search string
	Status models.StationStatus
	// ByVolume sorts by descending passenger count.
	ByVolume bool
}

// TierCount is the number of stations in one occupancy tier.
type TierCount struct {
	Tier  string
	Count int
}

// StationsSnapshot is a read-only view of the transit network.
type StationsSnapshot struct {
	Total       int
	Operational int
	Full        int
	Maintenance int
	Passengers  int
	Capacity    int
	Occupancy   []TierCount
	BusETA      int
	Taps        []models.TapEvent
	OpenAlerts  []alert.Open
}

// NewStations builds the station monitor and registers the seed stations.
func NewStations(p config.StationsPolicy, d Deps) (*Stations, error) {
	occupancy, err := p.Occupancy.Classifier()
	if err != nil {
		return nil, fmt.Errorf("stations occupancy tiers: %w", err)
	}
	if p.RFIDLog < 1 {
		return nil, fmt.Errorf("stations rfid log: %w", ErrInvalidInput)
	}
	status := tier.MustNew([]tier.Cutoff{{Tier: string(models.StationOperational), Below: 1}}, string(models.StationFull))

	s := &Stations{
		base:      newBase("stations", d),
		policy:    p,
		reg:       registry.New[models.Station]("ST", p.FirstID),
		occupancy: occupancy,
		status:    status,
		dedup:     alert.New(status.Highest()),
		taps:      telemetry.NewRing[models.TapEvent](p.RFIDLog),
		busETA:    p.BusInitial,
	}
	s.reg.OnRemove(s.dedup.Forget)

	for _, in := range stationSeeds {
		s.reg.Add(s.normalize(in))
	}
	return s, nil
}

func (s *Stations) normalize(in models.StationInput) models.Station {
	st := models.Station{
		Location:   strings.TrimSpace(in.Location),
		Capacity:   in.Capacity,
		Passengers: min(max(in.Passengers, 0), in.Capacity),
		Status:     in.Status,
	}
	if st.Status == "" {
		st.Status = models.StationOperational
	}
	return st
}

// Schedules returns the passenger, bus and RFID ticks.
func (s *Stations) Schedules() []Schedule {
	return []Schedule{
		{Name: "stats", Interval: s.policy.StatsInterval, Tick: s.tickStats},
		{Name: "bus", Interval: s.policy.BusInterval, Tick: s.tickBus},
		{Name: "rfid", Interval: s.policy.RFIDInterval, Tick: s.tickRFID},
	}
}

func (s *Stations) tickStats(now time.Time) {
	s.locked(func() {
		s.reg.Each(func(id string, st *models.Station) {
			if st.Status == models.StationMaintenance {
				return
			}
			walk := s.policy.Passengers
			walk.Min, walk.Max = 0, float64(st.Capacity)
			m := walk.Metric("passengers", float64(st.Passengers))
			st.Passengers = int(m.Step(s.src))
			s.settle(id, st, now)
		})
	})
}

// settle applies the Full hysteresis and feeds the alert state.
// Caller must hold the lock.
func (s *Stations) settle(id string, st *models.Station, now time.Time) {
	occ := st.Occupancy()
	switch {
	case st.Status == models.StationOperational && occ >= s.policy.FullAt:
		st.Status = models.StationFull
		s.logger.Info("station full", "id", id, "occupancy", occ)
	case st.Status == models.StationFull && occ < s.policy.ReleaseBelow:
		st.Status = models.StationOperational
		s.logger.Info("station released", "id", id, "occupancy", occ)
	}

	lvl := s.status.Lowest()
	if st.Status == models.StationFull {
		lvl = s.status.Highest()
	}
	s.observe(now, s.dedup, id, ConditionFull, lvl, float64(occ))
	s.emitScore(now, id, float64(occ), s.occupancy.Classify(float64(occ)))
}

func (s *Stations) tickBus(now time.Time) {
	s.locked(func() {
		s.busETA--
		if s.busETA > 0 {
			return
		}
		r := s.policy.BusReset
		s.busETA = telemetry.IntRange(s.src, r.Base, r.Base+r.Spread)
		s.logger.Debug("bus arrived", "next_in", s.busETA)
		s.emitSample(now, "bus_eta", float64(s.busETA))
	})
}

func (s *Stations) tickRFID(now time.Time) {
	s.locked(func() {
		ids := s.reg.List()
		if len(ids) == 0 {
			return
		}
		st := ids[telemetry.IntRange(s.src, 0, len(ids))]
		r := s.policy.PassID
		tap := models.TapEvent{
			Passenger: fmt.Sprintf("PASS-%d", telemetry.IntRange(s.src, r.Base, r.Base+r.Spread)),
			StationID: st.ID,
			At:        now,
		}
		s.taps.Push(tap)
		s.logger.Debug("rfid tap", "passenger", tap.Passenger, "station", tap.StationID)
	})
}

func validStation(in models.StationInput) error {
	if strings.TrimSpace(in.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if in.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	}
	return nil
}

// stationStatus canonicalises a status name. Empty means operational.
func stationStatus(st models.StationStatus) (models.StationStatus, error) {
	if st == "" {
		return models.StationOperational, nil
	}
	parsed, ok := models.ParseStationStatus(string(st))
	if !ok {
		return "", fmt.Errorf("%w: unknown station status %q", ErrInvalidInput, st)
	}
	return parsed, nil
}

// AddStation registers a station and returns its id. Passengers are clamped
// to the capacity.
func (s *Stations) AddStation(in models.StationInput) (string, error) {
	if err := validStation(in); err != nil {
		return "", err
	}
	status, err := stationStatus(in.Status)
	if err != nil {
		return "", err
	}
	in.Status = status
	var id string
	s.locked(func() {
		id = s.reg.Add(s.normalize(in))
		s.logger.Info("station added", "id", id, "location", in.Location)
	})
	return id, nil
}

// UpdateStation edits a station. Unknown ids return registry.ErrNotFound.
func (s *Stations) UpdateStation(id string, u models.StationUpdate) error {
	if u.Location != nil && strings.TrimSpace(*u.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if u.Capacity != nil && *u.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	}
	if u.Status != nil {
		if *u.Status == "" {
			return fmt.Errorf("%w: status is required", ErrInvalidInput)
		}
		status, err := stationStatus(*u.Status)
		if err != nil {
			return err
		}
		u.Status = &status
	}
	return s.lockedErr(func() error {
		now := s.now()
		err := s.reg.Update(id, func(st *models.Station) {
			u.Apply(st)
			s.settle(id, st, now)
		})
		if err != nil {
			return fmt.Errorf("update station: %w", err)
		}
		s.logger.Info("station updated", "id", id)
		return nil
	})
}

// RemoveStation deletes a station and silently drops its alert state.
func (s *Stations) RemoveStation(id string) error {
	return s.lockedErr(func() error {
		if err := s.reg.Remove(id); err != nil {
			return fmt.Errorf("remove station: %w", err)
		}
		s.logger.Info("station removed", "id", id)
		return nil
	})
}

// Station returns one station.
func (s *Stations) Station(id string) (models.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Get(id)
}

// List returns the stations matching q in registration order.
func (s *Stations) List(q StationQuery) []registry.Entry[models.Station] {
	s.mu.Lock()
	entries := s.reg.List()
	s.mu.Unlock()

	entries = registry.Search(entries, q.Search, func(st models.Station) []string {
		return []string{st.Location}
	})
	if q.Status != "" {
		entries = registry.Filter(entries, func(st models.Station) bool {
			return st.Status == q.Status
		})
	}
	if q.ByVolume {
		entries = registry.SortBy(entries, func(a, b models.Station) int {
			return cmp.Compare(b.Passengers, a.Passengers)
		})
	}
	return entries
}

// Snapshot returns counts, occupancy tiers, the bus countdown and recent taps.
func (s *Stations) Snapshot() StationsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels := s.occupancy.Levels()
	counts := make([]TierCount, len(levels))
	for i, l := range levels {
		counts[i].Tier = l.Name
	}

	snap := StationsSnapshot{
		Total:      s.reg.Len(),
		Occupancy:  counts,
		BusETA:     s.busETA,
		Taps:       s.taps.Snapshot(),
		OpenAlerts: s.dedup.Open(),
	}
	s.reg.Each(func(_ string, st *models.Station) {
		switch st.Status {
		case models.StationOperational:
			snap.Operational++
		case models.StationFull:
			snap.Full++
		case models.StationMaintenance:
			snap.Maintenance++
		}
		snap.Passengers += st.Passengers
		snap.Capacity += st.Capacity
		counts[s.occupancy.Classify(float64(st.Occupancy())).Rank].Count++
	})
	return snap
}
