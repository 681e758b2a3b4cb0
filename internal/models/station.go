package models

import "time"

// StationStatus is the operating status of a transit station.
type StationStatus string

// Station statuses.
const (
	StationOperational StationStatus = "Operational"
	StationFull        StationStatus = "Full"
	StationMaintenance StationStatus = "Maintenance"
)

// ParseStationStatus accepts a status name case-insensitively.
func ParseStationStatus(s string) (StationStatus, bool) {
	for _, st := range []StationStatus{StationOperational, StationFull, StationMaintenance} {
		if equalFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// Station is a transit stop with a passenger capacity.
type Station struct {
	Location   string        `json:"location"`
	Capacity   int           `json:"capacity"`
	Passengers int           `json:"passengers"`
	Status     StationStatus `json:"status"`
}

// Occupancy returns the integer fill percentage. Zero capacity reads as empty.
func (s Station) Occupancy() int {
	if s.Capacity <= 0 {
		return 0
	}
	return s.Passengers * 100 / s.Capacity
}

// StationInput is the input structure for registering stations.
type StationInput struct {
	Location   string        `json:"location"`
	Capacity   int           `json:"capacity"`
	Passengers int           `json:"passengers"`
	Status     StationStatus `json:"status,omitempty"`
}

// StationUpdate is the input structure for editing stations.
type StationUpdate struct {
	Location   *string        `json:"location,omitempty"`
	Capacity   *int           `json:"capacity,omitempty"`
	Passengers *int           `json:"passengers,omitempty"`
	Status     *StationStatus `json:"status,omitempty"`
}

// Apply copies the set fields onto s and keeps passengers within capacity.
func (u StationUpdate) Apply(s *Station) {
	if u.Location != nil {
		s.Location = *u.Location
	}
	if u.Capacity != nil {
		s.Capacity = max(*u.Capacity, 0)
	}
	if u.Passengers != nil {
		s.Passengers = *u.Passengers
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	s.Passengers = min(max(s.Passengers, 0), s.Capacity)
}

// TapEvent is one RFID card tap at a station gate.
type TapEvent struct {
	Passenger string    `json:"passenger"`
	StationID string    `json:"station_id"`
	At        time.Time `json:"at"`
}
