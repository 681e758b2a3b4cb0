package risk

import (
	"errors"
	"fmt"
)

// ErrUnorderedBands is returned when a rule's bands are not strictly descending.
var ErrUnorderedBands = errors.New("bands must be strictly descending")

// Band awards Points when a metric is at least AtLeast.
type Band struct {
	AtLeast float64
	Points  int
}

// Rule scores one metric. Bands are checked from the highest threshold down
// and the first hit wins.
type Rule struct {
	Metric string
	Bands  []Band
}

// Scorer computes a per-entity 0-100 risk score from band rules.
type Scorer struct {
	rules []Rule
}

// NewScorer validates band ordering.
func NewScorer(rules ...Rule) (*Scorer, error) {
	for _, r := range rules {
		if r.Metric == "" {
			return nil, errors.New("rule metric is empty")
		}
		for i := 1; i < len(r.Bands); i++ {
			if r.Bands[i].AtLeast >= r.Bands[i-1].AtLeast {
				return nil, fmt.Errorf("rule %s: %w", r.Metric, ErrUnorderedBands)
			}
		}
	}
	return &Scorer{rules: append([]Rule(nil), rules...)}, nil
}

// Score sums the points of every rule and clamps to [0, 100].
// Metrics missing from values score nothing.
func (s *Scorer) Score(values map[string]float64) int {
	total := 0
	for _, r := range s.rules {
		v, ok := values[r.Metric]
		if !ok {
			continue
		}
		for _, b := range r.Bands {
			if v >= b.AtLeast {
				total += b.Points
				break
			}
		}
	}
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// Metrics lists the metric names the scorer reads.
func (s *Scorer) Metrics() []string {
	out := make([]string, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r.Metric)
	}
	return out
}
