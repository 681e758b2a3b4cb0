package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gasTiers(t *testing.T) *Classifier {
	t.Helper()
	c, err := New([]Cutoff{{Tier: "Safe", Below: 300}, {Tier: "Warning", Below: 500}}, "Critical")
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	c := gasTiers(t)

	tests := []struct {
		value float64
		want  string
	}{
		{0, "Safe"},
		{299.9, "Safe"},
		{300, "Warning"},
		{499.99, "Warning"},
		{500, "Critical"},
		{800, "Critical"},
		{-10, "Safe"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.value).Name, "value %v", tt.value)
	}
}

func TestClassifyMonotonic(t *testing.T) {
	c := MustNew([]Cutoff{{"LOW", 40}, {"MEDIUM", 80}}, "HIGH")

	prev := c.Classify(-1000)
	for v := -1000.0; v <= 1000; v += 0.5 {
		got := c.Classify(v)
		require.GreaterOrEqual(t, got.Rank, prev.Rank, "value %v", v)
		prev = got
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cutoffs []Cutoff
		top     string
		want    error
	}{
		{"unordered", []Cutoff{{"Safe", 500}, {"Warning", 300}}, "Critical", ErrUnordered},
		{"equal cutoffs", []Cutoff{{"Safe", 300}, {"Warning", 300}}, "Critical", ErrUnordered},
		{"empty name", []Cutoff{{"", 300}}, "Critical", ErrEmptyTier},
		{"empty top", []Cutoff{{"Safe", 300}}, "", ErrEmptyTier},
		{"duplicate", []Cutoff{{"Safe", 300}, {"Safe", 400}}, "Critical", ErrDuplicateTier},
		{"top duplicates cutoff", []Cutoff{{"Safe", 300}}, "Safe", ErrDuplicateTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cutoffs, tt.top)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Panics(t, func() { MustNew([]Cutoff{{"a", 2}, {"b", 1}}, "c") })
}

func TestSingleTierClassifier(t *testing.T) {
	c := MustNew(nil, "Nominal")
	assert.Equal(t, "Nominal", c.Classify(1e9).Name)
	assert.Equal(t, c.Lowest(), c.Highest())
}

func TestLookupAndWorst(t *testing.T) {
	c := gasTiers(t)

	crit, ok := c.Lookup("Critical")
	require.True(t, ok)
	assert.Equal(t, 2, crit.Rank)
	_, ok = c.Lookup("Emergency")
	assert.False(t, ok)

	warn, _ := c.Lookup("Warning")
	assert.Equal(t, crit, Worst(warn, crit, c.Lowest()))
	assert.True(t, crit.AtLeast(warn))
	assert.False(t, warn.AtLeast(crit))
	assert.Len(t, c.Levels(), 3)
}
