// Package models defines the simulated city entities and their edit patches.
package models

import "time"

// HomeStatus is the alert status shown for a home.
type HomeStatus string

// Home statuses. Emergency is set only by an emergency shutdown.
const (
	HomeSafe      HomeStatus = "Safe"
	HomeWarning   HomeStatus = "Warning"
	HomeCritical  HomeStatus = "Critical"
	HomeEmergency HomeStatus = "Emergency"
)

// Home is a monitored residence with gas, smoke and climate sensors.
type Home struct {
	Owner       string     `json:"owner"`
	Contact     string     `json:"contact"`
	Address     string     `json:"address"`
	Gas         float64    `json:"gas_ppm"`
	Smoke       float64    `json:"smoke_ppm"`
	Temperature float64    `json:"temperature_c"`
	Humidity    float64    `json:"humidity_pct"`
	Status      HomeStatus `json:"status"`
	Risk        int        `json:"risk"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Readings returns the sensor values keyed by metric name.
func (h Home) Readings() map[string]float64 {
	return map[string]float64{
		"gas":         h.Gas,
		"smoke":       h.Smoke,
		"temperature": h.Temperature,
		"humidity":    h.Humidity,
	}
}

// HomeInput is the input structure for registering homes.
type HomeInput struct {
	Owner       string  `json:"owner"`
	Contact     string  `json:"contact"`
	Address     string  `json:"address"`
	Gas         float64 `json:"gas_ppm"`
	Smoke       float64 `json:"smoke_ppm"`
	Temperature float64 `json:"temperature_c"`
	Humidity    float64 `json:"humidity_pct"`
}

// HomeUpdate is the input structure for editing homes. Nil fields are left as is.
type HomeUpdate struct {
	Owner       *string  `json:"owner,omitempty"`
	Contact     *string  `json:"contact,omitempty"`
	Address     *string  `json:"address,omitempty"`
	Gas         *float64 `json:"gas_ppm,omitempty"`
	Smoke       *float64 `json:"smoke_ppm,omitempty"`
	Temperature *float64 `json:"temperature_c,omitempty"`
	Humidity    *float64 `json:"humidity_pct,omitempty"`
}

// Apply copies the set fields onto h. Sensor values are not clamped here.
func (u HomeUpdate) Apply(h *Home) {
	if u.Owner != nil {
		h.Owner = *u.Owner
	}
	if u.Contact != nil {
		h.Contact = *u.Contact
	}
	if u.Address != nil {
		h.Address = *u.Address
	}
	if u.Gas != nil {
		h.Gas = *u.Gas
	}
	if u.Smoke != nil {
		h.Smoke = *u.Smoke
	}
	if u.Temperature != nil {
		h.Temperature = *u.Temperature
	}
	if u.Humidity != nil {
		h.Humidity = *u.Humidity
	}
}

// Empty reports whether the patch changes nothing.
func (u HomeUpdate) Empty() bool {
	return u == HomeUpdate{}
}
