package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel is the literal that marks a missing measurement in source files.
const Sentinel = "-9999"

// dateLayout is the fixed YYYYMMDD observation date format.
const dateLayout = "20060102"

// Skip reasons returned by Decode. Callers match with errors.Is and count
// them; a skip never escalates past the decoder.
var (
	ErrFieldCount = errors.New("wrong field count")
	ErrBadDate    = errors.New("unparseable date")
	ErrBadNumber  = errors.New("non-numeric field")
)

// Observation is one decoded daily record: the raw tenths-encoded integers
// alongside their physical-unit values. Nil means the source carried the
// missing sentinel for that field.
type Observation struct {
	Date       time.Time
	RawMaxTemp *int
	RawMinTemp *int
	RawPrecip  *int
	MaxTempC   *float64
	MinTempC   *float64
	PrecipMM   *float64
	PrecipCM   *float64
}

// Decode parses one raw line into an Observation. A malformed line returns
// an error wrapping one of ErrFieldCount, ErrBadDate, or ErrBadNumber so the
// caller can log and skip it with a reason. Decode is pure and never panics.
func Decode(line string) (Observation, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) != 4 {
		return Observation{}, fmt.Errorf("%w: got %d, want 4", ErrFieldCount, len(fields))
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return Observation{}, fmt.Errorf("%w: %q", ErrBadDate, fields[0])
	}

	rawMax, err := parseTenths(fields[1])
	if err != nil {
		return Observation{}, fmt.Errorf("max temp: %w", err)
	}
	rawMin, err := parseTenths(fields[2])
	if err != nil {
		return Observation{}, fmt.Errorf("min temp: %w", err)
	}
	rawPrecip, err := parseTenths(fields[3])
	if err != nil {
		return Observation{}, fmt.Errorf("precip: %w", err)
	}

	obs := Observation{
		Date:       date,
		RawMaxTemp: rawMax,
		RawMinTemp: rawMin,
		RawPrecip:  rawPrecip,
		MaxTempC:   tenthsToUnit(rawMax),
		MinTempC:   tenthsToUnit(rawMin),
		PrecipMM:   tenthsToUnit(rawPrecip),
	}
	if obs.PrecipMM != nil {
		cm := *obs.PrecipMM / 10.0
		obs.PrecipCM = &cm
	}
	return obs, nil
}

// parseTenths parses a tenths-encoded integer field. The sentinel maps to
// nil, not to a number.
func parseTenths(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == Sentinel {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return &v, nil
}

// tenthsToUnit converts a raw tenths value to its physical unit.
func tenthsToUnit(raw *int) *float64 {
	if raw == nil {
		return nil
	}
	v := float64(*raw) / 10.0
	return &v
}
