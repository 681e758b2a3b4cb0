package service

import (
	"github.com/raphaelgruber/citypulse/internal/events"
	"github.com/raphaelgruber/citypulse/internal/modules"
)

// Security incidents raised by other modules.
const (
	IncidentWasteOverload   = "waste_overload"
	IncidentLightingFailure = "lighting_failure"
	IncidentSpeedViolation  = "speed_violation"
)

// incidentFor maps a module event to the security incident it triggers.
func incidentFor(ev events.Event) (string, bool) {
	switch {
	case ev.Module == "recycling" && ev.Kind == events.AlertRaised && ev.Condition == modules.ConditionOverflow:
		return IncidentWasteOverload, true
	case ev.Module == "lighting" && ev.Kind == events.AlertRaised && ev.Condition == modules.ConditionMaintenance:
		return IncidentLightingFailure, true
	case ev.Module == "pedestrian" && ev.Kind == events.SampleAppended && ev.Series == modules.SeriesViolations:
		return IncidentSpeedViolation, true
	}
	return "", false
}

// escalate feeds the security center. It runs on the publishing module's
// goroutine after that module released its lock.
func (s *CityService) escalate(ev events.Event) {
	name, ok := incidentFor(ev)
	if !ok {
		return
	}
	if err := s.Security.SimulateIncident(name); err != nil {
		s.logger.Warn("escalation skipped", "incident", name, "module", ev.Module, "error", err)
		return
	}
	s.logger.Debug("incident escalated", "incident", name, "module", ev.Module, "entity", ev.EntityID)
}
