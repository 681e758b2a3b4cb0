package modules

import "github.com/raphaelgruber/citypulse/internal/models"

// Entities every fresh simulation starts with.

var homeSeeds = []models.HomeInput{
	{Owner: "John Smith", Contact: "+1-555-0101", Address: "123 Main St", Gas: 120.5, Smoke: 45.2, Temperature: 22.3, Humidity: 48.5},
	{Owner: "Sarah Johnson", Contact: "+1-555-0102", Address: "456 Oak Ave", Gas: 235.8, Smoke: 180.3, Temperature: 24.1, Humidity: 55.2},
	{Owner: "Michael Brown", Contact: "+1-555-0103", Address: "789 Pine Rd", Gas: 85.3, Smoke: 32.1, Temperature: 21.8, Humidity: 52.0},
	{Owner: "Emily Davis", Contact: "+1-555-0104", Address: "321 Elm St", Gas: 520.2, Smoke: 410.5, Temperature: 38.5, Humidity: 72.3},
	{Owner: "David Wilson", Contact: "+1-555-0105", Address: "654 Maple Dr", Gas: 95.7, Smoke: 55.8, Temperature: 23.2, Humidity: 50.1},
	{Owner: "Lisa Anderson", Contact: "+1-555-0106", Address: "987 Cedar Ln", Gas: 310.4, Smoke: 245.6, Temperature: 26.5, Humidity: 65.8},
	{Owner: "Robert Taylor", Contact: "+1-555-0107", Address: "147 Birch Way", Gas: 78.2, Smoke: 28.9, Temperature: 22.0, Humidity: 49.3},
	{Owner: "Jennifer Martinez", Contact: "+1-555-0108", Address: "258 Spruce Ct", Gas: 155.6, Smoke: 125.4, Temperature: 25.3, Humidity: 58.7},
}

var stationSeeds = []models.StationInput{
	{Location: "Downtown Central", Capacity: 500, Passengers: 456, Status: models.StationFull},
	{Location: "North District", Capacity: 400, Passengers: 234, Status: models.StationOperational},
	{Location: "East Terminal", Capacity: 600, Passengers: 289, Status: models.StationOperational},
	{Location: "West Plaza", Capacity: 450, Passengers: 445, Status: models.StationFull},
	{Location: "South Gate", Capacity: 350, Passengers: 120, Status: models.StationOperational},
	{Location: "Airport Link", Capacity: 550, Passengers: 0, Status: models.StationMaintenance},
	{Location: "University Hub", Capacity: 480, Passengers: 370, Status: models.StationOperational},
	{Location: "Business Park", Capacity: 420, Passengers: 315, Status: models.StationOperational},
}

var binSeeds = []models.Bin{
	{Location: "Main Street Plaza", Fill: 35},
	{Location: "Central Park East", Fill: 68},
	{Location: "City Hall", Fill: 92},
	{Location: "Shopping District", Fill: 45},
	{Location: "University Campus", Fill: 78},
	{Location: "Residential Zone A", Fill: 22},
	{Location: "Industrial Park", Fill: 88},
	{Location: "Sports Complex", Fill: 41},
}

var poleSeeds = []models.Streetlight{
	{Location: "Main Street North", Intensity: 85, Presence: true, Status: models.PoleActive},
	{Location: "Main Street South", Intensity: 45, Status: models.PoleActive},
	{Location: "Central Plaza", Intensity: 90, Presence: true, Status: models.PoleActive},
	{Location: "Park Avenue", Intensity: 60, Status: models.PoleActive},
	{Location: "University Gate", Intensity: 95, Presence: true, Status: models.PoleActive},
	{Location: "Shopping District", Intensity: 75, Presence: true, Status: models.PoleActive},
	{Location: "Residential Zone", Intensity: 40, Status: models.PoleActive},
	{Location: "Industrial Area", Intensity: 0, Status: models.PoleMaintenance},
	{Location: "Sports Complex", Intensity: 80, Presence: true, Status: models.PoleActive},
	{Location: "Hospital Road", Intensity: 100, Presence: true, Status: models.PoleActive},
}

// Crosswalk is a monitored pedestrian crossing.
type Crosswalk struct {
	ID       string
	Location string
}

var crosswalks = []Crosswalk{
	{"CW-001", "Main St & 1st Ave"},
	{"CW-002", "Central Plaza"},
	{"CW-003", "School Zone"},
	{"CW-004", "Shopping District"},
	{"CW-005", "University Campus"},
	{"CW-006", "Hospital Area"},
	{"CW-007", "Industrial Park"},
	{"CW-008", "Residential Zone"},
}

// hotCrosswalks are where simulated violations happen.
var hotCrosswalks = []string{"CW-001", "CW-002", "CW-003", "CW-007"}

var violationSeeds = []models.Violation{
	{Crosswalk: "CW-003", Vehicle: "VEH-7892", SpeedKmh: 65},
	{Crosswalk: "CW-007", Vehicle: "VEH-4521", SpeedKmh: 72},
	{Crosswalk: "CW-002", Vehicle: "VEH-8934", SpeedKmh: 58},
	{Crosswalk: "CW-003", Vehicle: "VEH-2156", SpeedKmh: 68},
	{Crosswalk: "CW-007", Vehicle: "VEH-6789", SpeedKmh: 75},
}

// healthSeeds overrides the Operational/Low default of a component.
var healthSeeds = map[string]models.ComponentHealth{
	"Pedestrian Safety Network": {Status: models.HealthOperational, Risk: "Medium"},
	"Communication Layer":       {Status: models.HealthWarning, Risk: "Medium"},
}
