package modules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/citypulse/internal/events"
)

func newTestSecurity(t *testing.T) (*Security, *recorder) {
	t.Helper()
	d, rec := testDeps()
	s, err := NewSecurity(testPolicy(t).Security, d)
	require.NoError(t, err)
	return s, rec
}

func TestSecurityBaseline(t *testing.T) {
	s, rec := newTestSecurity(t)
	snap := s.Snapshot()

	// 100 - (3 + 6 + 2.4 + 2.5), truncated
	assert.Equal(t, 86, snap.Score)
	assert.Equal(t, "Stable", snap.Level)
	assert.False(t, snap.Alerting)
	assert.Len(t, snap.Factors, 4)
	assert.Empty(t, rec.events, "construction publishes nothing")
}

func TestSecurityIncidents(t *testing.T) {
	s, rec := newTestSecurity(t)

	require.NoError(t, s.SimulateIncident("cyber_attack"))
	assert.Equal(t, 76, s.Snapshot().Score)
	assert.Equal(t, "Stable", s.Snapshot().Level)

	require.NoError(t, s.SimulateIncident("cyber_attack"))
	assert.Equal(t, 66, s.Snapshot().Score)
	assert.Equal(t, "Warning", s.Snapshot().Level)

	for range 3 {
		require.NoError(t, s.SimulateIncident("cyber_attack"))
	}
	snap := s.Snapshot()
	assert.Equal(t, 36, snap.Score)
	assert.Equal(t, "Critical", snap.Level)
	assert.True(t, snap.Alerting)
	assert.Len(t, rec.matching(events.AlertRaised, CityEntity, "stability"), 1)

	err := s.SimulateIncident("meteor")
	assert.ErrorIs(t, err, ErrUnknownIncident)

	s.Reset()
	assert.Equal(t, 86, s.Snapshot().Score)
	assert.Len(t, rec.matching(events.AlertCleared, CityEntity, "stability"), 1)
}

func TestSecurityRecovers(t *testing.T) {
	s, _ := newTestSecurity(t)
	require.NoError(t, s.SimulateIncident("speed_violation"))
	assert.Equal(t, 82, s.Snapshot().Score)

	for range 10 {
		tick(t, s, "monitor")
	}
	snap := s.Snapshot()
	assert.Equal(t, 86, snap.Score)
	assert.Len(t, snap.Risk, 12)
	assert.Equal(t, 14.0, snap.Risk[len(snap.Risk)-1])
}

func TestSecurityIncidentNames(t *testing.T) {
	s, _ := newTestSecurity(t)
	assert.Equal(t, []string{"speed_violation", "waste_overload", "lighting_failure", "cyber_attack"}, s.Incidents())
}

func TestSecurityPanicReleasesLock(t *testing.T) {
	s, rec := newTestSecurity(t)

	assert.Panics(t, func() { s.ApplyIncident("nope", 1) })

	done := make(chan SecuritySnapshot, 1)
	go func() { done <- s.Snapshot() }()
	select {
	case snap := <-done:
		assert.Equal(t, 86, snap.Score)
	case <-time.After(time.Second):
		t.Fatal("module lock still held after a panicking action")
	}

	require.NoError(t, s.SimulateIncident("cyber_attack"))
	assert.Equal(t, 76, s.Snapshot().Score)
	assert.Len(t, rec.matching(events.ScoreUpdated, "", ""), 1)
}

func TestSecurityThreatList(t *testing.T) {
	s, rec := newTestSecurity(t)
	assert.Empty(t, s.Snapshot().Threats)

	require.NoError(t, s.SimulateIncident("waste_overload"))
	th, err := s.TriggerThreat()
	require.NoError(t, err)
	// draw 0.5 picks the third configured threat and loses the coin flip
	assert.Equal(t, "Abnormal Energy Pattern", th.Type)
	assert.Equal(t, "Smart Lighting Network", th.Component)
	assert.Equal(t, "CRITICAL", th.Severity)
	assert.Equal(t, testNow, th.At)

	threats := s.Snapshot().Threats
	require.Len(t, threats, 2)
	assert.Equal(t, "Abnormal Energy Pattern", threats[0].Type, "newest first")
	assert.Equal(t, "Waste Overload", threats[1].Type)
	assert.Equal(t, "Recycling Infrastructure", threats[1].Component)

	samples := rec.matching(events.SampleAppended, "Recycling Infrastructure", "Waste Overload")
	require.Len(t, samples, 1)
	assert.Equal(t, "threats", samples[0].Series)
	assert.Equal(t, "CRITICAL", samples[0].Severity)

	s.ClearThreats()
	assert.Empty(t, s.Snapshot().Threats)
	assert.Equal(t, 81, s.Snapshot().Score, "clearing threats leaves the score alone")
}

func TestSecurityTriggerThreatSeverity(t *testing.T) {
	d, _ := testDeps(0.1, 0.3)
	s, err := NewSecurity(testPolicy(t).Security, d)
	require.NoError(t, err)

	th, err := s.TriggerThreat()
	require.NoError(t, err)
	assert.Equal(t, "Fake Speed Data Injection", th.Type)
	assert.Equal(t, "Pedestrian Safety Network", th.Component)
	assert.Equal(t, "WARNING", th.Severity)
	assert.Equal(t, 86, s.Snapshot().Score)
}

func TestSecurityHealthTable(t *testing.T) {
	s, _ := newTestSecurity(t)

	status := func() map[string]string {
		out := map[string]string{}
		for _, h := range s.Snapshot().Health {
			out[h.Name] = string(h.Status) + "/" + h.Risk
		}
		return out
	}
	assert.Equal(t, map[string]string{
		"Recycling Infrastructure":  "Operational/Low",
		"Pedestrian Safety Network": "Operational/Medium",
		"Smart Lighting Network":    "Operational/Low",
		"Communication Layer":       "Warning/Medium",
		"Database & Storage":        "Operational/Low",
		"Authentication System":     "Operational/Low",
	}, status())

	require.NoError(t, s.SimulateIncident("cyber_attack"))
	require.NoError(t, s.SimulateIncident("lighting_failure"))
	require.NoError(t, s.SimulateIncident("speed_violation"))
	got := status()
	assert.Equal(t, "Critical/High", got["Authentication System"])
	assert.Equal(t, "Warning/High", got["Smart Lighting Network"])
	assert.Equal(t, "Operational/Medium", got["Pedestrian Safety Network"], "speed violations only add a threat")

	s.Reset()
	for name, st := range status() {
		assert.Equal(t, "Operational/Low", st, name)
	}
	assert.Len(t, s.Snapshot().Threats, 3, "reset keeps the threat list")
}
