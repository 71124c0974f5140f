package domain

import (
	"errors"
	"fmt"
	"time"
)

// Station is the dimension entity for one observation site. Rows are created
// on first reference from an ingested file and never deleted by the pipeline.
type Station struct {
	StationID string
	Name      string
	Latitude  float64
	Longitude float64
	Elevation *float64
	State     string
	Country   string
	Timezone  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StationMetadata is the reference-table entry for a known station.
type StationMetadata struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Elevation float64 `yaml:"elevation"`
	State     string  `yaml:"state"`
}

// Validate checks metadata bounds before a station row is built from it.
func (m StationMetadata) Validate() error {
	if m.Name == "" {
		return errors.New("station name is required")
	}
	if m.Latitude < -90 || m.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", m.Latitude)
	}
	if m.Longitude < -180 || m.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", m.Longitude)
	}
	if len(m.State) != 2 {
		return fmt.Errorf("state %q must be a two-letter code", m.State)
	}
	return nil
}

// StationFromMetadata builds a full station row from reference metadata.
func StationFromMetadata(id string, m StationMetadata) Station {
	elev := m.Elevation
	now := clock.Now().UTC()
	return Station{
		StationID: id,
		Name:      m.Name,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Elevation: &elev,
		State:     m.State,
		Country:   "USA",
		Timezone:  "UTC",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlaceholderStation builds the minimal row used when a file references a
// station absent from the metadata directory, so ingestion never blocks on
// missing dimension data.
func PlaceholderStation(id string) Station {
	now := clock.Now().UTC()
	return Station{
		StationID: id,
		Name:      fmt.Sprintf("Station %s", id),
		Latitude:  0,
		Longitude: 0,
		State:     "XX",
		Country:   "USA",
		Timezone:  "UTC",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
