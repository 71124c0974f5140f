package domain

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSource is the provenance label used when a file does not belong to
// a named source stream. Multiple sources may coexist for the same station
// and date without collision.
const DefaultSource = "manual"

// Raw-value bounds enforced at the store boundary. A raw value outside its
// range (and not nil) is rejected, never clamped.
const (
	RawTempLower   = -9999
	RawTempUpper   = 6000
	RawPrecipLower = 0
	RawPrecipUpper = 10000
)

// ErrRawOutOfRange marks a fact whose raw values violate the schema bounds.
var ErrRawOutOfRange = errors.New("raw value out of range")

// WeatherFact is one persisted observation, keyed by
// (station_id, observation_date, source). It is written in full on every
// (re)ingestion of its source line and never partially updated.
type WeatherFact struct {
	StationID       string
	ObservationDate time.Time
	Source          string

	RawMaxTemp *int
	RawMinTemp *int
	RawPrecip  *int

	MaxTempC *float64
	MinTempC *float64
	PrecipMM *float64
	PrecipCM *float64

	DataQuality   Tier
	QualityScore  float64
	MissingValues int
	OutlierCount  int
	QualityNotes  string

	IngestedAt  time.Time
	IngestRunID string
}

// NewFact assembles a fully-formed fact from a decoded observation and its
// quality grade. IngestedAt comes from the package clock.
func NewFact(stationID, source, runID string, obs Observation, q Quality) WeatherFact {
	if source == "" {
		source = DefaultSource
	}
	return WeatherFact{
		StationID:       stationID,
		ObservationDate: obs.Date,
		Source:          source,
		RawMaxTemp:      obs.RawMaxTemp,
		RawMinTemp:      obs.RawMinTemp,
		RawPrecip:       obs.RawPrecip,
		MaxTempC:        obs.MaxTempC,
		MinTempC:        obs.MinTempC,
		PrecipMM:        obs.PrecipMM,
		PrecipCM:        obs.PrecipCM,
		DataQuality:     q.Tier,
		QualityScore:    q.Score,
		MissingValues:   q.MissingValues,
		OutlierCount:    q.OutlierCount,
		QualityNotes:    q.Notes,
		IngestedAt:      clock.Now().UTC(),
		IngestRunID:     runID,
	}
}

// ValidateRaw checks the raw tenths values against the schema bounds.
// Nil values are legal; out-of-range values return ErrRawOutOfRange.
func (f WeatherFact) ValidateRaw() error {
	if f.RawMaxTemp != nil && (*f.RawMaxTemp < RawTempLower || *f.RawMaxTemp > RawTempUpper) {
		return fmt.Errorf("%w: raw_max_temp %d", ErrRawOutOfRange, *f.RawMaxTemp)
	}
	if f.RawMinTemp != nil && (*f.RawMinTemp < RawTempLower || *f.RawMinTemp > RawTempUpper) {
		return fmt.Errorf("%w: raw_min_temp %d", ErrRawOutOfRange, *f.RawMinTemp)
	}
	if f.RawPrecip != nil && (*f.RawPrecip < RawPrecipLower || *f.RawPrecip > RawPrecipUpper) {
		return fmt.Errorf("%w: raw_precip %d", ErrRawOutOfRange, *f.RawPrecip)
	}
	return nil
}
