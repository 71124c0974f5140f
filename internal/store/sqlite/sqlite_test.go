package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store/sqlite"
)

var frozen = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "weather.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func mustFact(t *testing.T, stationID, line string) domain.WeatherFact {
	t.Helper()
	obs, err := domain.Decode(line)
	require.NoError(t, err)
	q := domain.ScoreQuality(obs.MaxTempC, obs.MinTempC, obs.PrecipMM)
	return domain.NewFact(stationID, domain.DefaultSource, "run-1", obs, q)
}

func ensureStation(t *testing.T, s *sqlite.Store, id string) {
	t.Helper()
	require.NoError(t, s.EnsureStation(context.Background(), domain.PlaceholderStation(id)))
}

func TestUpsertFact_Idempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "USC00110072")

	fact := mustFact(t, "USC00110072", "20200101\t100\t20\t50")
	require.NoError(t, s.UpsertFact(ctx, fact))
	require.NoError(t, s.UpsertFact(ctx, fact))

	facts, total, err := s.ListFacts(ctx, store.FactFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, facts, 1)
	assert.Empty(t, cmp.Diff(fact, facts[0]))
}

func TestUpsertFact_LatestWriteWins(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "USC00110072")

	first := mustFact(t, "USC00110072", "20200101\t100\t20\t50")
	require.NoError(t, s.UpsertFact(ctx, first))

	// Same composite key, different measurements and lineage.
	second := mustFact(t, "USC00110072", "20200101\t-9999\t30\t70")
	second.IngestRunID = "run-2"
	require.NoError(t, s.UpsertFact(ctx, second))

	facts, total, err := s.ListFacts(ctx, store.FactFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, facts, 1)

	got := facts[0]
	assert.Nil(t, got.RawMaxTemp)
	require.NotNil(t, got.MinTempC)
	assert.InDelta(t, 3.0, *got.MinTempC, 1e-9)
	assert.Equal(t, "run-2", got.IngestRunID)
	assert.Equal(t, 1, got.MissingValues)
}

func TestUpsertFact_DistinctSourcesCoexist(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "USC00110072")

	manual := mustFact(t, "USC00110072", "20200101\t100\t20\t50")
	noaa := mustFact(t, "USC00110072", "20200101\t110\t25\t60")
	noaa.Source = "noaa"

	require.NoError(t, s.UpsertFact(ctx, manual))
	require.NoError(t, s.UpsertFact(ctx, noaa))

	_, total, err := s.ListFacts(ctx, store.FactFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	facts, _, err := s.ListFacts(ctx, store.FactFilter{Source: "noaa"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "noaa", facts[0].Source)
}

func TestUpsertFact_RawBoundViolationRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "USC00110072")

	fact := mustFact(t, "USC00110072", "20200101\t99999\t20\t50")
	err := s.UpsertFact(ctx, fact)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConstraintViolation)

	// The rejected row must never appear.
	_, total, err := s.ListFacts(ctx, store.FactFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpsertFact_RawBoundCases(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "X")

	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{name: "temp upper bound ok", line: "20200101\t6000\t20\t50", wantErr: false},
		{name: "temp above upper bound", line: "20200102\t6001\t20\t50", wantErr: true},
		{name: "negative precip", line: "20200103\t100\t20\t-5", wantErr: true},
		{name: "precip upper bound ok", line: "20200104\t100\t20\t10000", wantErr: false},
		{name: "precip above upper bound", line: "20200105\t100\t20\t10001", wantErr: true},
		{name: "all sentinels ok", line: "20200106\t-9999\t-9999\t-9999", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpsertFact(ctx, mustFact(t, "X", tt.line))
			if tt.wantErr {
				assert.ErrorIs(t, err, store.ErrConstraintViolation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureStation_Idempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := domain.PlaceholderStation("USC00110072")
	require.NoError(t, s.EnsureStation(ctx, first))

	// A second ensure with different values must not overwrite the row.
	second := domain.PlaceholderStation("USC00110072")
	second.Name = "Renamed"
	require.NoError(t, s.EnsureStation(ctx, second))

	stations, total, err := s.ListStations(ctx, store.StationFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, stations, 1)
	assert.Equal(t, "Station USC00110072", stations[0].Name)
	assert.Equal(t, "XX", stations[0].State)
}

func TestListStations_Filters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ne := domain.StationFromMetadata("A1", domain.StationMetadata{
		Name: "Lincoln", Latitude: 40.85, Longitude: -96.75, Elevation: 362, State: "NE",
	})
	ia := domain.StationFromMetadata("B1", domain.StationMetadata{
		Name: "Des Moines", Latitude: 41.53, Longitude: -93.65, Elevation: 294, State: "IA",
	})
	require.NoError(t, s.EnsureStation(ctx, ne))
	require.NoError(t, s.EnsureStation(ctx, ia))

	stations, total, err := s.ListStations(ctx, store.StationFilter{State: "NE"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, stations, 1)
	assert.Equal(t, "A1", stations[0].StationID)
	require.NotNil(t, stations[0].Elevation)
	assert.InDelta(t, 362.0, *stations[0].Elevation, 1e-9)
}

func TestListFacts_Pagination(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "X")

	lines := []string{
		"20200101\t100\t20\t50",
		"20200102\t110\t30\t0",
		"20200103\t120\t40\t10",
	}
	for _, line := range lines {
		require.NoError(t, s.UpsertFact(ctx, mustFact(t, "X", line)))
	}

	facts, total, err := s.ListFacts(ctx, store.FactFilter{Page: store.Page{Number: 2, PerPage: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, facts, 1)
	assert.Equal(t, time.Date(2020, time.January, 3, 0, 0, 0, 0, time.UTC), facts[0].ObservationDate)
}

func TestListFacts_DateRange(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "X")

	for _, line := range []string{
		"20200101\t100\t20\t50",
		"20200215\t110\t30\t0",
		"20200301\t120\t40\t10",
	} {
		require.NoError(t, s.UpsertFact(ctx, mustFact(t, "X", line)))
	}

	facts, total, err := s.ListFacts(ctx, store.FactFilter{
		From: time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, facts, 1)
	assert.Equal(t, 15, facts[0].ObservationDate.Day())
}

func TestReplaceSummaries_FullReplace(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	avg := 11.0
	first := []domain.Summary{{
		StationID: "X", Granularity: domain.GranularityAnnual,
		PeriodStart: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		Year:        2020, AvgMaxTempC: &avg, RecordCount: 2, AvgQualityScore: 1.0,
		ComputedAt: frozen,
	}}
	require.NoError(t, s.ReplaceSummaries(ctx, domain.GranularityAnnual, first))

	// Recompute with a different result set: old rows must vanish.
	second := []domain.Summary{{
		StationID: "Y", Granularity: domain.GranularityAnnual,
		PeriodStart: time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		Year:        2021, RecordCount: 1, AvgQualityScore: 0.8,
		ComputedAt: frozen,
	}}
	require.NoError(t, s.ReplaceSummaries(ctx, domain.GranularityAnnual, second))

	summaries, total, err := s.ListSummaries(ctx, store.SummaryFilter{Granularity: domain.GranularityAnnual})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Y", summaries[0].StationID)
	assert.Nil(t, summaries[0].AvgMaxTempC)
}

func TestReplaceSummaries_GranularitiesIndependent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	annual := []domain.Summary{{
		StationID: "X", Granularity: domain.GranularityAnnual,
		PeriodStart: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		Year:        2020, RecordCount: 1, AvgQualityScore: 1.0, ComputedAt: frozen,
	}}
	monthly := []domain.Summary{{
		StationID: "X", Granularity: domain.GranularityMonthly,
		PeriodStart: time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC),
		Year:        2020, Month: 3, RecordCount: 1, AvgQualityScore: 1.0, ComputedAt: frozen,
	}}
	require.NoError(t, s.ReplaceSummaries(ctx, domain.GranularityAnnual, annual))
	require.NoError(t, s.ReplaceSummaries(ctx, domain.GranularityMonthly, monthly))

	// Replacing annual must not touch monthly rows.
	require.NoError(t, s.ReplaceSummaries(ctx, domain.GranularityAnnual, nil))

	_, annualTotal, err := s.ListSummaries(ctx, store.SummaryFilter{Granularity: domain.GranularityAnnual})
	require.NoError(t, err)
	assert.Zero(t, annualTotal)

	got, monthlyTotal, err := s.ListSummaries(ctx, store.SummaryFilter{Granularity: domain.GranularityMonthly})
	require.NoError(t, err)
	assert.Equal(t, 1, monthlyTotal)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Month)
}

func TestFactMetrics(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ensureStation(t, s, "X")

	require.NoError(t, s.UpsertFact(ctx, mustFact(t, "X", "20200101\t100\t20\t50")))
	require.NoError(t, s.UpsertFact(ctx, mustFact(t, "X", "20200102\t-9999\t-9999\t-9999")))

	metrics, err := s.FactMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	byDay := map[int]domain.FactMetrics{}
	for _, m := range metrics {
		byDay[m.Date.Day()] = m
	}
	require.NotNil(t, byDay[1].MaxTempC)
	assert.InDelta(t, 10.0, *byDay[1].MaxTempC, 1e-9)
	assert.Nil(t, byDay[2].MaxTempC)
	assert.Nil(t, byDay[2].PrecipMM)
	assert.InDelta(t, 0.4, byDay[2].QualityScore, 1e-9)
}
