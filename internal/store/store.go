// Package store defines the persistence boundary for the weather pipeline.
// Adapters (sqlite, postgres) implement Store behind a uniform
// upsert-by-composite-key contract; the core never branches on backend
// identity.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
)

// ErrConstraintViolation marks a write rejected at the store boundary
// (raw values outside schema bounds). Callers treat it like a malformed
// line: skip and continue, never abort the file.
var ErrConstraintViolation = errors.New("constraint violation")

// Pagination bounds shared by all list operations.
const (
	DefaultPerPage = 50
	MaxPerPage     = 1000
)

// Page describes one page of a list query. Zero values select page 1 with
// the default size; PerPage is capped at MaxPerPage.
type Page struct {
	Number  int
	PerPage int
}

// Normalize clamps the page parameters into their legal ranges.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// StationFilter selects stations for listing.
type StationFilter struct {
	State   string
	Country string
	Active  *bool
	Page    Page
}

// FactFilter selects weather facts for listing.
type FactFilter struct {
	StationID string
	Source    string
	Quality   string
	From      time.Time // inclusive, zero means unbounded
	To        time.Time // inclusive, zero means unbounded
	Page      Page
}

// SummaryFilter selects aggregation rows for listing.
type SummaryFilter struct {
	Granularity domain.Granularity
	StationID   string
	Year        int
	Page        Page
}

// Store is the persistence contract the pipeline and API depend on.
//
// UpsertFact replaces every non-key field of an existing row with the same
// (station_id, observation_date, source) key: latest write wins, no
// field-level merge. Each upsert is a single atomic operation.
//
// ReplaceSummaries swaps one granularity's materialized rows atomically: a
// failed recompute leaves the previous state visible.
type Store interface {
	// Init creates the schema. Failure is fatal at startup.
	Init(ctx context.Context) error

	EnsureStation(ctx context.Context, st domain.Station) error
	UpsertFact(ctx context.Context, fact domain.WeatherFact) error

	FactMetrics(ctx context.Context) ([]domain.FactMetrics, error)
	ReplaceSummaries(ctx context.Context, g domain.Granularity, summaries []domain.Summary) error

	ListStations(ctx context.Context, f StationFilter) ([]domain.Station, int, error)
	ListFacts(ctx context.Context, f FactFilter) ([]domain.WeatherFact, int, error)
	ListSummaries(ctx context.Context, f SummaryFilter) ([]domain.Summary, int, error)

	Ping(ctx context.Context) error
	Close() error
}
