package modules

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/citypulse/internal/alert"
	"github.com/raphaelgruber/citypulse/internal/config"
	"github.com/raphaelgruber/citypulse/internal/models"
	"github.com/raphaelgruber/citypulse/internal/telemetry"
	"github.com/raphaelgruber/citypulse/internal/tier"
)

// City is the city intelligence module: an integer stability walk, a rolling
// risk forecast and a decision log of predictions and recommendations.
type City struct {
	base
	policy config.CityPolicy

	stability telemetry.Metric
	tiers     *tier.Classifier
	dedup     *alert.Deduplicator
	forecast  *telemetry.Ring[float64]
	level     tier.Level

	decisions *telemetry.Ring[models.Decision]
	recIndex  int
	rec       models.Recommendation
}

var recommendationImpacts = []string{"Low", "Medium", "High"}

// CitySnapshot is a read-only view of the city intelligence module.
type CitySnapshot struct {
	Stability int
	Level     string
	Forecast  []float64
	Breakdown []config.FactorSpec

	// Decisions is the log, oldest first.
	Decisions      []models.Decision
	Recommendation models.Recommendation
}

// NewCity builds the city intelligence module from its policy.
func NewCity(p config.CityPolicy, d Deps) (*City, error) {
	tiers, alertAt, err := p.Tiers.Build()
	if err != nil {
		return nil, fmt.Errorf("city tiers: %w", err)
	}
	if p.ForecastSize < 1 || p.DecisionLog < 1 {
		return nil, fmt.Errorf("city forecast or decision log size: %w", ErrInvalidInput)
	}
	if len(p.Categories) == 0 || len(p.Recommendations) == 0 {
		return nil, fmt.Errorf("city predictions: %w", ErrInvalidInput)
	}

	c := &City{
		base:      newBase("city", d),
		policy:    p,
		stability: p.Stability.Metric("stability", p.Stability.Initial),
		tiers:     tiers,
		dedup:     alert.New(alertAt),
		forecast:  telemetry.NewRing[float64](p.ForecastSize),
		decisions: telemetry.NewRing[models.Decision](p.DecisionLog),
	}
	now := c.now()
	c.fillForecast()
	c.classify(now)
	c.recommend()
	c.decide(now, "City intelligence module initialized")
	c.pending = nil
	return c, nil
}

// Schedules returns the intelligence update tick.
func (c *City) Schedules() []Schedule {
	return []Schedule{{Name: "intelligence", Interval: c.policy.Interval, Tick: c.tick}}
}

func (c *City) tick(now time.Time) {
	c.locked(func() {
		c.stability.Step(c.src)
		v := c.forecastPoint()
		c.forecast.Push(v)
		c.emitSample(now, "forecast", v)
		c.classify(now)
		if telemetry.Chance(c.src, c.policy.InsightChance) {
			c.decide(now, "New prediction generated based on pattern analysis")
		}
	})
}

// decide appends a line to the decision log. Caller must hold the lock.
func (c *City) decide(now time.Time, msg string) {
	c.decisions.Push(models.Decision{At: now, Message: msg})
	c.logger.Info("decision logged", "message", msg)
	c.emitSample(now, "decisions", float64(c.decisions.Len()))
}

// recommend draws confidence and impact for the current recommendation.
// Caller must hold the lock.
func (c *City) recommend() {
	c.rec = models.Recommendation{
		Text:       c.policy.Recommendations[c.recIndex],
		Confidence: telemetry.IntRange(c.src, 75, 95),
		Impact:     recommendationImpacts[telemetry.IntRange(c.src, 0, len(recommendationImpacts))],
	}
}

// classify tiers the stability score by its complement. Caller must hold the lock.
func (c *City) classify(now time.Time) {
	c.level = c.tiers.Classify(100 - c.stability.Value)
	c.emitScore(now, CityEntity, c.stability.Value, c.level)
	c.observe(now, c.dedup, CityEntity, "stability", c.level, c.stability.Value)
}

func (c *City) forecastPoint() float64 {
	return c.policy.ForecastMin + c.src.Float64()*c.policy.ForecastSpread
}

func (c *City) fillForecast() {
	c.forecast.Clear()
	for range c.forecast.Cap() {
		c.forecast.Push(c.forecastPoint())
	}
}

// RefreshForecast regenerates the whole forecast window.
func (c *City) RefreshForecast() {
	c.locked(func() {
		c.fillForecast()
		last, _ := c.forecast.Last()
		now := c.now()
		c.emitSample(now, "forecast", last)
		c.logger.Info("risk forecast refreshed", "points", c.forecast.Len())
		c.decide(now, "Risk forecasts refreshed with latest data")
	})
}

// GeneratePrediction draws a category and a severity from 1 to 3 and logs it.
func (c *City) GeneratePrediction() models.Prediction {
	var pr models.Prediction
	c.locked(func() {
		pr = models.Prediction{
			Category: c.policy.Categories[telemetry.IntRange(c.src, 0, len(c.policy.Categories))],
			Severity: telemetry.IntRange(c.src, 1, 4),
		}
		c.decide(c.now(), fmt.Sprintf("Prediction generated: %s risk, severity %d", pr.Category, pr.Severity))
	})
	return pr
}

// ApplyRecommendation logs the current recommendation as applied and moves
// on to the next one. It returns the applied recommendation.
func (c *City) ApplyRecommendation() models.Recommendation {
	return c.resolve("APPLIED")
}

// IgnoreRecommendation logs the current recommendation as ignored and moves
// on to the next one.
func (c *City) IgnoreRecommendation() models.Recommendation {
	return c.resolve("IGNORED")
}

func (c *City) resolve(verdict string) models.Recommendation {
	var done models.Recommendation
	c.locked(func() {
		done = c.rec
		c.decide(c.now(), verdict+": "+done.Text)
		c.recIndex = (c.recIndex + 1) % len(c.policy.Recommendations)
		c.recommend()
	})
	return done
}

// Snapshot returns the current state.
func (c *City) Snapshot() CitySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CitySnapshot{
		Stability:      int(c.stability.Value),
		Level:          c.level.Name,
		Forecast:       c.forecast.Snapshot(),
		Breakdown:      append([]config.FactorSpec(nil), c.policy.Breakdown...),
		Decisions:      c.decisions.Snapshot(),
		Recommendation: c.rec,
	}
}
