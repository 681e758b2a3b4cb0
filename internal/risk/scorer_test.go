package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func homeScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(
		Rule{Metric: "gas", Bands: []Band{{500, 40}, {300, 25}, {150, 10}}},
		Rule{Metric: "smoke", Bands: []Band{{300, 30}, {180, 15}}},
		Rule{Metric: "temperature", Bands: []Band{{40, 20}, {32, 10}}},
		Rule{Metric: "humidity", Bands: []Band{{80, 10}}},
	)
	require.NoError(t, err)
	return s
}

func TestScorerBands(t *testing.T) {
	s := homeScorer(t)

	tests := []struct {
		name   string
		values map[string]float64
		want   int
	}{
		{"all calm", map[string]float64{"gas": 120.5, "smoke": 45.2, "temperature": 22.3, "humidity": 48.5}, 0},
		{"warning home", map[string]float64{"gas": 310.4, "smoke": 245.6, "temperature": 26.5, "humidity": 65.8}, 40},
		{"critical home", map[string]float64{"gas": 520.2, "smoke": 410.5, "temperature": 38.5, "humidity": 72.3}, 80},
		{"everything maxed", map[string]float64{"gas": 800, "smoke": 600, "temperature": 45, "humidity": 90}, 100},
		{"edge equals threshold", map[string]float64{"gas": 150}, 10},
		{"missing metrics", map[string]float64{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.values))
		})
	}
}

func TestScorerClamps(t *testing.T) {
	s, err := NewScorer(
		Rule{Metric: "a", Bands: []Band{{0, 80}}},
		Rule{Metric: "b", Bands: []Band{{0, 80}}},
		Rule{Metric: "c", Bands: []Band{{0, -300}}},
	)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Score(map[string]float64{"a": 1, "b": 1}))
	assert.Equal(t, 0, s.Score(map[string]float64{"c": 1}))
}

func TestScorerRejectsAscendingBands(t *testing.T) {
	_, err := NewScorer(Rule{Metric: "gas", Bands: []Band{{150, 10}, {500, 40}}})
	assert.ErrorIs(t, err, ErrUnorderedBands)

	_, err = NewScorer(Rule{Bands: []Band{{1, 1}}})
	assert.Error(t, err)
}
