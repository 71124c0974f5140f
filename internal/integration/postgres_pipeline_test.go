//go:build integration

package integration_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/observability"
	"github.com/GvsSriRam/corteva-code-challenge/internal/pipeline"
	"github.com/GvsSriRam/corteva-code-challenge/internal/station"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store/postgres"
)

// startPostgres runs a disposable PostgreSQL container and returns a DSN.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("weather"),
		tcpostgres.WithUsername("weather"),
		tcpostgres.WithPassword("weather"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func openStore(ctx context.Context, t *testing.T, dsn string) *postgres.Store {
	t.Helper()
	st, err := postgres.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Init(ctx))
	return st
}

// TestPostgresPipeline runs a full ingest-then-aggregate cycle against a
// real PostgreSQL instance and reads the results back through the store.
func TestPostgresPipeline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	st := openStore(ctx, t, startPostgres(ctx, t))

	watch := t.TempDir()
	content := "20200101\t250\t120\t30\n" +
		"20200102\t-9999\t100\t0\n" +
		"20200715\t310\t180\t125\n"
	require.NoError(t, os.WriteFile(filepath.Join(watch, "USC00110072.txt"), []byte(content), 0o644))

	metrics := observability.NewMetricsForTesting()
	sweeper := pipeline.NewSweeper(watch, t.TempDir(), ".txt", "manual",
		station.Empty(), st, slog.Default(), metrics)

	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, pipeline.StateArchived, report.Files[0].State)
	assert.Equal(t, 3, report.Accepted)

	aggregator := pipeline.NewAggregator(st, st, slog.Default(), metrics)
	require.NoError(t, aggregator.Recompute(ctx))

	facts, total, err := st.ListFacts(ctx, store.FactFilter{StationID: "USC00110072"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, facts, 3)

	// Sentinel max temp persisted as NULL, clean values derived.
	jan2 := facts[1]
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), jan2.ObservationDate)
	assert.Nil(t, jan2.MaxTempC)
	require.NotNil(t, jan2.MinTempC)
	assert.InDelta(t, 10.0, *jan2.MinTempC, 1e-9)
	assert.Equal(t, domain.TierGood, jan2.DataQuality)

	summaries, _, err := st.ListSummaries(ctx, store.SummaryFilter{Granularity: domain.GranularityAnnual})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2020, summaries[0].Year)
	assert.Equal(t, 3, summaries[0].RecordCount)

	monthly, _, err := st.ListSummaries(ctx, store.SummaryFilter{Granularity: domain.GranularityMonthly})
	require.NoError(t, err)
	assert.Len(t, monthly, 2)
}

// TestPostgresUpsertIdempotence re-ingests the same file and verifies the
// row count and contents converge instead of duplicating.
func TestPostgresUpsertIdempotence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	st := openStore(ctx, t, startPostgres(ctx, t))

	watch := t.TempDir()
	metrics := observability.NewMetricsForTesting()
	sweeper := pipeline.NewSweeper(watch, t.TempDir(), ".txt", "manual",
		station.Empty(), st, slog.Default(), metrics)

	content := "20200101\t250\t120\t30\n"
	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(watch, "USC00110072.txt"), []byte(content), 0o644))
		_, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
	}

	_, total, err := st.ListFacts(ctx, store.FactFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

// TestPostgresRejectsRawBounds verifies the CHECK constraints and the Go
// pre-write validation agree on the raw value ranges.
func TestPostgresRejectsRawBounds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	st := openStore(ctx, t, startPostgres(ctx, t))
	require.NoError(t, st.EnsureStation(ctx, domain.PlaceholderStation("USC00110072")))

	obs, err := domain.Decode("20200101\t99999\t120\t30")
	require.NoError(t, err)
	fact := domain.NewFact("USC00110072", "manual", "run-1", obs,
		domain.ScoreQuality(obs.MaxTempC, obs.MinTempC, obs.PrecipMM))

	err = st.UpsertFact(ctx, fact)
	require.ErrorIs(t, err, store.ErrConstraintViolation)

	_, total, err := st.ListFacts(ctx, store.FactFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
