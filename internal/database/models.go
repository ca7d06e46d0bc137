package database

import (
	"time"
)

// Incident represents one reported traffic incident.
//
// Records are bulk-loaded by an external ingestion process; this service
// only reads them and applies single-row edits. Classification and
// municipality are uncontrolled free text ("Major", "MAJOR ", "major" may
// all appear) and are normalized at read time, never in storage.
type Incident struct {
	ID   uint       `gorm:"primaryKey" json:"id"`
	Date *time.Time `gorm:"index" json:"date"` // occurrence timestamp; nil excludes the row from date filtering
	Time string     `json:"time"`              // display-only free text

	Type           string `json:"type"`
	Classification string `gorm:"index" json:"classification"` // conventionally MINOR/MODERATE/MAJOR, stored as free text
	Location       string `gorm:"type:text" json:"location"`
	Municipality   string `gorm:"index" json:"municipality"`
	District       string `json:"district"`
	Barangay       string `json:"barangay"`

	// VehiclesInvolved may contain multiple vehicle-type substrings
	// ("SINGLE MOTORCYCLE VS TRICYCLE") and is matched per token.
	VehiclesInvolved string `gorm:"type:text" json:"vehicles_involved"`
	VehicleCounts    string `json:"vehicle_counts"`

	// Operational fields, opaque to analytics; pass through CRUD untouched.
	Narratives            string `gorm:"type:text" json:"narratives"`
	Sector                string `json:"sector"`
	StatusUpdate          string `gorm:"type:text" json:"status_update"`
	LanesUpdate           string `gorm:"type:text" json:"lanes_update"`
	LanesAffected         string `json:"lanes_affected"`
	Team                  string `json:"team"`
	TOCPatrol             string `gorm:"column:toc_patrol" json:"toc_patrol"`
	Delta1                string `gorm:"column:delta_1" json:"delta_1"`
	TL                    string `gorm:"column:tl" json:"tl"`
	ATL                   string `gorm:"column:atl" json:"atl"`
	RoadworkUpdate        string `gorm:"type:text" json:"roadwork_update"`
	StrandedVehicleReport string `gorm:"type:text" json:"stranded_vehicle_report"`
	AccidentReport        string `gorm:"type:text" json:"accident_report"`
	Images                string `gorm:"type:text" json:"images"`
	ResponseTime          string `json:"response_time"`

	// Optional geolocation; absent for incidents without coordinates.
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name used by the ingestion pipeline.
func (Incident) TableName() string {
	return "traffic_incidents"
}

// HasCoordinates reports whether the incident can be placed on the map.
func (i *Incident) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}
