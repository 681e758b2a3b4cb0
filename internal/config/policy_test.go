package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultPolicy(t *testing.T) {
	p, err := DefaultPolicy()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, p.Security.Interval)
	assert.Len(t, p.Security.Factors, 4)
	assert.Equal(t, 9*time.Second, p.City.Interval)
	assert.Equal(t, 3*time.Second, p.Homes.AlertInterval)
	assert.Equal(t, time.Second, p.Stations.BusInterval)
	assert.Equal(t, 1001, p.Stations.FirstID)
	assert.Len(t, p.Recycling.Materials, 3)
	assert.Equal(t, 0.4, p.Lighting.PresenceChance)
	assert.Len(t, p.Pedestrian.AlertHistory, 7)
	assert.Len(t, p.Analytics.Recycling, 3)

	c, alertAt, err := p.Homes.GasTiers.Build()
	require.NoError(t, err)
	assert.Equal(t, "Critical", alertAt.Name)
	assert.Equal(t, "Critical", c.Classify(500).Name)
	assert.Equal(t, "Warning", c.Classify(499.9).Name)
}

func TestSecurityTiersMatchStabilityBands(t *testing.T) {
	p, err := DefaultPolicy()
	require.NoError(t, err)
	c, err := p.Security.Tiers.Classifier()
	require.NoError(t, err)

	tests := []struct {
		score int
		want  string
	}{
		{100, "Stable"},
		{76, "Stable"},
		{75, "Warning"},
		{50, "Warning"},
		{49, "Critical"},
		{0, "Critical"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(float64(100-tt.score)).Name, "score %d", tt.score)
	}
}

func TestParsePolicyOverlaysDefault(t *testing.T) {
	p, err := ParsePolicy([]byte("city:\n  interval: 2s\n"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, p.City.Interval)
	assert.Equal(t, 87.0, p.City.Stability.Initial, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, p.Security.Interval)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lighting:\n  presence_chance: 0.9\n"), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, p.Lighting.PresenceChance)
}

func TestInvalidPolicies(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"zero interval", "security:\n  interval: 0s\n", "security"},
		{"unordered tiers", "homes:\n  gas_tiers:\n    cutoffs: [{name: Safe, below: 500}, {name: Warning, below: 300}]\n    top: Critical\n", "gas_tiers"},
		{"unknown alert tier", "recycling:\n  tiers:\n    cutoffs: [{name: Operational, below: 70}]\n    top: Full\n    alert_at: Overflowing\n", "Overflowing"},
		{"unknown incident factor", "security:\n  incidents: [{name: flood, factor: water, delta: 5}]\n", "water"},
		{"zero history", "lighting:\n  history: 0\n", "history"},
		{"unknown health status", "security:\n  incidents: [{name: flood, factor: waste, delta: 5, component: Communication Layer, health: Flooded}]\n", "Flooded"},
		{"unknown incident component", "security:\n  incidents: [{name: flood, factor: waste, delta: 5, component: Dam, health: Critical}]\n", "Dam"},
		{"insight chance", "city:\n  insight_chance: 1.5\n", "insight chance"},
		{"no recommendations", "city:\n  recommendations: []\n", "recommendations"},
		{"bad shares", "recycling:\n  materials: [{name: plastic, share: 0.5}]\n", "shares"},
		{"ascending bands", "homes:\n  risk: [{metric: gas, bands: [{at_least: 1, points: 1}, {at_least: 2, points: 2}]}]\n", "risk"},
		{"hysteresis inverted", "stations:\n  release_below: 99\n", "release_below"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPolicy)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMalformedYAML(t *testing.T) {
	_, err := ParsePolicy([]byte("security: [unclosed"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPolicy)
}

func TestPolicyRoundTripsThroughYAML(t *testing.T) {
	p, err := DefaultPolicy()
	require.NoError(t, err)

	out, err := yaml.Marshal(p)
	require.NoError(t, err)

	again, err := ParsePolicy(out)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}
