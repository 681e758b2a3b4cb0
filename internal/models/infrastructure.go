package models

import "time"

// BinStatus is the fill status of a recycling bin.
type BinStatus string

// Bin statuses.
const (
	BinOperational BinStatus = "Operational"
	BinAlmostFull  BinStatus = "Almost Full"
	BinFull        BinStatus = "Full"
)

// Bin is a smart recycling bin.
type Bin struct {
	Location string    `json:"location"`
	Fill     int       `json:"fill_pct"`
	Status   BinStatus `json:"status"`
	// Notified is set once a collection was requested for a full bin.
	Notified bool `json:"collection_notified"`
}

// PoleStatus is the operating status of a streetlight.
type PoleStatus string

// Streetlight statuses.
const (
	PoleActive      PoleStatus = "Active"
	PoleMaintenance PoleStatus = "Maintenance"
)

// Streetlight is an adaptive lighting pole.
type Streetlight struct {
	Location  string     `json:"location"`
	Intensity int        `json:"intensity_pct"`
	Presence  bool       `json:"presence"`
	Status    PoleStatus `json:"status"`
}

// Violation is a vehicle speeding through a crosswalk.
type Violation struct {
	Crosswalk string    `json:"crosswalk"`
	Vehicle   string    `json:"vehicle"`
	SpeedKmh  int       `json:"speed_kmh"`
	Severity  string    `json:"severity"`
	At        time.Time `json:"at"`
}
