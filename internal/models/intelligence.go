package models

import "time"

// HealthStatus is the state of a monitored city subsystem.
type HealthStatus string

// Subsystem health states.
const (
	HealthOperational HealthStatus = "Operational"
	HealthWarning     HealthStatus = "Warning"
	HealthCritical    HealthStatus = "Critical"
)

// ParseHealthStatus accepts a health state case-insensitively.
func ParseHealthStatus(s string) (HealthStatus, bool) {
	for _, h := range []HealthStatus{HealthOperational, HealthWarning, HealthCritical} {
		if equalFold(s, string(h)) {
			return h, true
		}
	}
	return "", false
}

// ComponentHealth is one row of the security center's system health table.
type ComponentHealth struct {
	Name       string       `json:"name"`
	Status     HealthStatus `json:"status"`
	Risk       string       `json:"risk"`
	LastSignal time.Time    `json:"last_signal"`
}

// Threat severities.
const (
	ThreatWarning  = "WARNING"
	ThreatCritical = "CRITICAL"
)

// Threat is an entry of the security threat list.
type Threat struct {
	Type      string    `json:"type"`
	Component string    `json:"component"`
	Severity  string    `json:"severity"`
	At        time.Time `json:"at"`
}

// Decision is a timestamped line of the city decision log.
type Decision struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Prediction is a generated risk prediction. Severity runs from 1 to 3.
type Prediction struct {
	Category string `json:"category"`
	Severity int    `json:"severity"`
}

// Recommendation is the pending advice of the city intelligence module.
type Recommendation struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence_pct"`
	Impact     string `json:"impact"`
}
