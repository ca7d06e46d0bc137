package testhelpers

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mbda/trafficboard/internal/database"
)

// IncidentBuilder builds Incident records for tests with sensible defaults.
type IncidentBuilder struct {
	incident database.Incident
}

// NewIncident creates a builder with default values
func NewIncident() *IncidentBuilder {
	date := time.Date(2024, time.March, 15, 8, 30, 0, 0, time.UTC)
	return &IncidentBuilder{
		incident: database.Incident{
			Date:             &date,
			Time:             "8:30 AM",
			Type:             "COLLISION",
			Classification:   "MINOR",
			Location:         "Diversion Road",
			Municipality:     "Balanga",
			VehiclesInvolved: "SINGLE MOTORCYCLE",
		},
	}
}

// WithDate sets the occurrence date
func (b *IncidentBuilder) WithDate(date time.Time) *IncidentBuilder {
	b.incident.Date = &date
	return b
}

// WithoutDate clears the occurrence date
func (b *IncidentBuilder) WithoutDate() *IncidentBuilder {
	b.incident.Date = nil
	return b
}

// WithType sets the incident type
func (b *IncidentBuilder) WithType(t string) *IncidentBuilder {
	b.incident.Type = t
	return b
}

// WithClassification sets the classification
func (b *IncidentBuilder) WithClassification(c string) *IncidentBuilder {
	b.incident.Classification = c
	return b
}

// WithMunicipality sets the municipality
func (b *IncidentBuilder) WithMunicipality(m string) *IncidentBuilder {
	b.incident.Municipality = m
	return b
}

// WithLocation sets the location description
func (b *IncidentBuilder) WithLocation(l string) *IncidentBuilder {
	b.incident.Location = l
	return b
}

// WithVehicles sets the vehicles-involved text
func (b *IncidentBuilder) WithVehicles(v string) *IncidentBuilder {
	b.incident.VehiclesInvolved = v
	return b
}

// WithCoordinates sets latitude and longitude
func (b *IncidentBuilder) WithCoordinates(lat, lng float64) *IncidentBuilder {
	b.incident.Latitude = &lat
	b.incident.Longitude = &lng
	return b
}

// Build returns the incident without persisting it
func (b *IncidentBuilder) Build() database.Incident {
	return b.incident
}

// Create persists the incident and returns it
func (b *IncidentBuilder) Create(t *testing.T, db *gorm.DB) database.Incident {
	t.Helper()
	incident := b.incident
	if err := db.Create(&incident).Error; err != nil {
		t.Fatalf("failed to create test incident: %v", err)
	}
	return incident
}
