package pipeline_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/pipeline"
	"github.com/GvsSriRam/corteva-code-challenge/internal/station"
)

// runnerStore serves both the sweeper and the aggregator.
type runnerStore struct {
	*fakeStore
	*fakeSummarySink
}

func (r *runnerStore) FactMetrics(_ context.Context) ([]domain.FactMetrics, error) {
	var metrics []domain.FactMetrics
	for _, fact := range r.facts {
		metrics = append(metrics, domain.FactMetrics{
			StationID:    fact.StationID,
			Date:         fact.ObservationDate,
			MaxTempC:     fact.MaxTempC,
			MinTempC:     fact.MinTempC,
			PrecipMM:     fact.PrecipMM,
			QualityScore: fact.QualityScore,
		})
	}
	return metrics, nil
}

func TestRunner_SweepsAndAggregatesUntilCancelled(t *testing.T) {
	st := &runnerStore{fakeStore: newFakeStore(), fakeSummarySink: newFakeSink()}
	watch := t.TempDir()
	metrics := newTestMetrics()

	writeFile(t, watch, "USC00110072.txt", "20200101\t250\t120\t30\n20200215\t100\t50\t0\n")

	sweeper := pipeline.NewSweeper(watch, t.TempDir(), ".txt", "manual",
		station.Empty(), st, slog.Default(), metrics)
	aggregator := pipeline.NewAggregator(st, st, slog.Default(), metrics)
	runner := pipeline.NewRunner(sweeper, aggregator, 10*time.Millisecond, slog.Default(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, runner.Run(ctx))

	assert.Len(t, st.facts, 2)
	// The accepting sweep triggered a full recompute.
	assert.Contains(t, st.replaced, domain.GranularityAnnual)
	assert.Contains(t, st.replaced, domain.GranularityMonthly)
	assert.Contains(t, st.replaced, domain.GranularityQuarterly)
	assert.Len(t, st.replaced[domain.GranularityMonthly], 2)
}

func TestRunner_StopsPromptlyOnCancel(t *testing.T) {
	st := &runnerStore{fakeStore: newFakeStore(), fakeSummarySink: newFakeSink()}
	metrics := newTestMetrics()

	sweeper := pipeline.NewSweeper(t.TempDir(), t.TempDir(), ".txt", "manual",
		station.Empty(), st, slog.Default(), metrics)
	aggregator := pipeline.NewAggregator(st, st, slog.Default(), metrics)
	runner := pipeline.NewRunner(sweeper, aggregator, time.Hour, slog.Default(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
}
