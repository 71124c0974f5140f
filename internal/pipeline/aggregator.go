package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/observability"
)

// MetricsSource reads the aggregation slice of every stored fact.
type MetricsSource interface {
	FactMetrics(ctx context.Context) ([]domain.FactMetrics, error)
}

// SummarySink atomically replaces one granularity's summary rows.
type SummarySink interface {
	ReplaceSummaries(ctx context.Context, g domain.Granularity, summaries []domain.Summary) error
}

// Aggregator recomputes materialized summaries from the fact table. Each
// recompute is full, not incremental: derived state is always reproducible
// from facts alone.
type Aggregator struct {
	source  MetricsSource
	sink    SummarySink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator over the given source and sink.
func NewAggregator(source MetricsSource, sink SummarySink, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{source: source, sink: sink, logger: logger, metrics: metrics}
}

// Recompute rebuilds the summaries for the given granularities, or all of
// them when none are named. Facts are read once and reused across
// granularities. A failed replace stops the run and leaves that
// granularity's previous rows visible.
func (a *Aggregator) Recompute(ctx context.Context, granularities ...domain.Granularity) error {
	if len(granularities) == 0 {
		granularities = domain.Granularities()
	}
	start := time.Now()

	facts, err := a.source.FactMetrics(ctx)
	if err != nil {
		for _, g := range granularities {
			a.metrics.AggregationRuns.WithLabelValues(string(g), "error").Inc()
		}
		return fmt.Errorf("read fact metrics: %w", err)
	}

	for _, g := range granularities {
		summaries := domain.Aggregate(g, facts)
		if err := a.sink.ReplaceSummaries(ctx, g, summaries); err != nil {
			a.metrics.AggregationRuns.WithLabelValues(string(g), "error").Inc()
			return fmt.Errorf("replace %s summaries: %w", g, err)
		}
		a.metrics.AggregationRuns.WithLabelValues(string(g), "success").Inc()
		a.logger.Info("summaries recomputed", "granularity", g, "rows", len(summaries), "facts", len(facts))
	}

	a.metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	return nil
}
