package modules

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/registry"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// ConditionOverflow is the alert condition of a full bin.
const ConditionOverflow = "overflow"

// simulatedFill is the level SimulateBinFull raises a bin to.
const simulatedFill = 95

// MaterialTotal is the collected weight of one material.
type MaterialTotal struct {
	Name string
	Kg   float64
}

// Recycling tracks collected material totals and smart bin fill levels.
type Recycling struct {
	base
	policy config.RecyclingPolicy

	materials []MaterialTotal
	bins      *registry.Registry[models.Bin]
	tiers     *tier.Classifier
	dedup     *alert.Deduplicator
}

// RecyclingSnapshot is a read-only view of the recycling network.
type RecyclingSnapshot struct {
	TotalKg    float64
	Materials  []MaterialTotal
	Bins       []registry.Entry[models.Bin]
	OpenAlerts []alert.Open
}

// NewRecycling builds the recycling monitor with the seed bins.
func NewRecycling(p config.RecyclingPolicy, d Deps) (*Recycling, error) {
	tiers, alertAt, err := p.Tiers.Build()
	if err != nil {
		return nil, fmt.Errorf("recycling tiers: %w", err)
	}

	r := &Recycling{
		base:   newBase("recycling", d),
		policy: p,
		bins:   registry.New[models.Bin]("BIN", 1, registry.Padded(3)),
		tiers:  tiers,
		dedup:  alert.New(alertAt),
	}
	for _, m := range p.Materials {
		r.materials = append(r.materials, MaterialTotal{Name: m.Name, Kg: m.Initial})
	}
	for _, b := range binSeeds {
		b.Status = models.BinStatus(tiers.Classify(float64(b.Fill)).Name)
		r.bins.Add(b)
	}
	return r, nil
}

// Schedules returns the collection tick.
func (r *Recycling) Schedules() []Schedule {
	return []Schedule{{Name: "collection", Interval: r.policy.Interval, Tick: r.tick}}
}

func (r *Recycling) tick(now time.Time) {
	r.locked(func() {
		kg := telemetry.Uniform(r.src, r.policy.IncrementMin, r.policy.IncrementMax)
		for i, m := range r.policy.Materials {
			r.materials[i].Kg += kg * m.Share
		}
		r.emitSample(now, "total", r.total())

		fill := r.policy.BinFill
		r.bins.Each(func(id string, b *models.Bin) {
			b.Fill = min(b.Fill+telemetry.IntRange(r.src, fill.Base, fill.Base+fill.Spread), 100)
			r.settle(id, b, now)
		})
	})
}

// settle classifies a bin and feeds the overflow alert. Caller must hold the lock.
func (r *Recycling) settle(id string, b *models.Bin, now time.Time) {
	lvl := r.tiers.Classify(float64(b.Fill))
	b.Status = models.BinStatus(lvl.Name)
	if b.Status != models.BinFull {
		b.Notified = false
	}
	r.emitScore(now, id, float64(b.Fill), lvl)
	r.observe(now, r.dedup, id, ConditionOverflow, lvl, float64(b.Fill))
}

func (r *Recycling) total() float64 {
	var sum float64
	for _, m := range r.materials {
		sum += m.Kg
	}
	return sum
}

// EmptyBin resets a bin after collection. Unknown ids return registry.ErrNotFound.
func (r *Recycling) EmptyBin(id string) error {
	return r.lockedErr(func() error {
		now := r.now()
		err := r.bins.Update(id, func(b *models.Bin) {
			b.Fill = 0
			r.settle(id, b, now)
		})
		if err != nil {
			return fmt.Errorf("empty bin: %w", err)
		}
		r.logger.Info("bin emptied", "id", id)
		return nil
	})
}

// SetFill overrides a bin's fill level, clamped to 0..100.
func (r *Recycling) SetFill(id string, fill int) error {
	return r.lockedErr(func() error {
		now := r.now()
		err := r.bins.Update(id, func(b *models.Bin) {
			b.Fill = min(max(fill, 0), 100)
			r.settle(id, b, now)
		})
		if err != nil {
			return fmt.Errorf("set bin fill: %w", err)
		}
		return nil
	})
}

// SimulateBinFull raises a random bin to 95% and returns its id.
func (r *Recycling) SimulateBinFull() (string, error) {
	var id string
	err := r.lockedErr(func() error {
		ids := registry.IDs(r.bins.List())
		if len(ids) == 0 {
			return fmt.Errorf("simulate bin full: %w", ErrInvalidInput)
		}
		id = ids[telemetry.IntRange(r.src, 0, len(ids))]
		now := r.now()
		return r.bins.Update(id, func(b *models.Bin) {
			b.Fill = simulatedFill
			r.settle(id, b, now)
			r.logger.Info("bin full simulated", "id", id, "location", b.Location)
		})
	})
	return id, err
}

// NotifyCollection requests collection of every full bin and returns their
// ids. Bins already notified are included again but emit nothing new.
func (r *Recycling) NotifyCollection() []string {
	var ids []string
	r.locked(func() {
		now := r.now()
		r.bins.Each(func(id string, b *models.Bin) {
			if b.Status != models.BinFull {
				return
			}
			ids = append(ids, id)
			if b.Notified {
				return
			}
			b.Notified = true
			r.emit(events.Event{
				Kind:     events.SampleAppended,
				EntityID: id,
				Series:   "collection",
				Value:    float64(b.Fill),
				At:       now,
			})
		})
		r.logger.Info("collection notified", "bins", len(ids))
	})
	return ids
}

// Snapshot returns totals, bins and open overflow alerts.
func (r *Recycling) Snapshot() RecyclingSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RecyclingSnapshot{
		TotalKg:    r.total(),
		Materials:  append([]MaterialTotal(nil), r.materials...),
		Bins:       r.bins.List(),
		OpenAlerts: r.dedup.Open(),
	}
}
