package database

import (
	"gorm.io/gorm"
)

// GetIncident returns an incident by ID.
// Returns gorm.ErrRecordNotFound if no row matches.
// Accepts a db parameter (rather than using the global DB) to support
// dependency injection and easier testing.
func GetIncident(db *gorm.DB, id uint) (*Incident, error) {
	var incident Incident
	if err := db.First(&incident, id).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}

// UpdateIncidentFields applies an allow-listed field map to a single
// incident and returns the updated row. Callers are responsible for
// restricting the map to editable columns; the map keys are column names.
func UpdateIncidentFields(db *gorm.DB, id uint, fields map[string]interface{}) (*Incident, error) {
	incident, err := GetIncident(db, id)
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := db.Model(incident).Updates(fields).Error; err != nil {
			return nil, err
		}
	}

	// Reload so callers see exactly what was persisted
	return GetIncident(db, id)
}
