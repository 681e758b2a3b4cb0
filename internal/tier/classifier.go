// Package tier maps scalar readings onto ordered severity tiers.
package tier

import (
	"errors"
	"fmt"
)

// Configuration errors returned by New.
var (
	ErrNoTiers       = errors.New("no tiers configured")
	ErrEmptyTier     = errors.New("tier name is empty")
	ErrDuplicateTier = errors.New("duplicate tier name")
	ErrUnordered     = errors.New("cutoffs must be strictly increasing")
)

// Level is a classified tier. Rank 0 is the least severe.
type Level struct {
	Name string
	Rank int
}

// AtLeast reports whether l is as severe as other or worse.
func (l Level) AtLeast(other Level) bool {
	return l.Rank >= other.Rank
}

func (l Level) String() string { return l.Name }

// Cutoff names the tier for every value strictly below Below.
type Cutoff struct {
	Tier  string
	Below float64
}

// Classifier holds a validated, ordered threshold set.
type Classifier struct {
	cutoffs []Cutoff
	levels  []Level
}

// New validates the cutoffs and builds a classifier. top names the tier for
// values at or above the last cutoff.
func New(cutoffs []Cutoff, top string) (*Classifier, error) {
	if top == "" {
		return nil, fmt.Errorf("top tier: %w", ErrEmptyTier)
	}

	seen := make(map[string]bool, len(cutoffs)+1)
	levels := make([]Level, 0, len(cutoffs)+1)
	for i, c := range cutoffs {
		if c.Tier == "" {
			return nil, fmt.Errorf("cutoff %d: %w", i, ErrEmptyTier)
		}
		if seen[c.Tier] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTier, c.Tier)
		}
		if i > 0 && c.Below <= cutoffs[i-1].Below {
			return nil, fmt.Errorf("%w: %s (%g) after %s (%g)",
				ErrUnordered, c.Tier, c.Below, cutoffs[i-1].Tier, cutoffs[i-1].Below)
		}
		seen[c.Tier] = true
		levels = append(levels, Level{Name: c.Tier, Rank: i})
	}
	if seen[top] {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTier, top)
	}
	levels = append(levels, Level{Name: top, Rank: len(cutoffs)})

	return &Classifier{
		cutoffs: append([]Cutoff(nil), cutoffs...),
		levels:  levels,
	}, nil
}

// MustNew is New for statically known threshold sets; it panics on error.
func MustNew(cutoffs []Cutoff, top string) *Classifier {
	c, err := New(cutoffs, top)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the first tier whose cutoff is strictly greater than v,
// or the top tier.
func (c *Classifier) Classify(v float64) Level {
	for i, cut := range c.cutoffs {
		if v < cut.Below {
			return c.levels[i]
		}
	}
	return c.levels[len(c.levels)-1]
}

// Lookup finds a tier by name.
func (c *Classifier) Lookup(name string) (Level, bool) {
	for _, l := range c.levels {
		if l.Name == name {
			return l, true
		}
	}
	return Level{}, false
}

// Levels lists tiers from least to most severe.
func (c *Classifier) Levels() []Level {
	return append([]Level(nil), c.levels...)
}

// Lowest is the least severe tier.
func (c *Classifier) Lowest() Level { return c.levels[0] }

// Highest is the most severe tier.
func (c *Classifier) Highest() Level { return c.levels[len(c.levels)-1] }

// Worst returns the more severe of the given levels.
func Worst(levels ...Level) Level {
	var out Level
	for i, l := range levels {
		if i == 0 || l.Rank > out.Rank {
			out = l
		}
	}
	return out
}
