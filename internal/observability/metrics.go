package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion and aggregation pipeline.
type Metrics struct {
	LinesAccepted prometheus.Counter
	LinesSkipped  *prometheus.CounterVec // label: reason={field_count,bad_date,bad_number,other}
	FactsUpserted prometheus.Counter
	FactsRejected prometheus.Counter // raw-bound violations at the store boundary

	FilesArchived prometheus.Counter
	FilesFailed   prometheus.Counter
	SweepDuration prometheus.Histogram

	AggregationRuns     *prometheus.CounterVec // labels: granularity, outcome={success,error}
	AggregationDuration prometheus.Histogram

	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LinesAccepted,
		m.LinesSkipped,
		m.FactsUpserted,
		m.FactsRejected,
		m.FilesArchived,
		m.FilesFailed,
		m.SweepDuration,
		m.AggregationRuns,
		m.AggregationDuration,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LinesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "lines_accepted_total",
			Help:      "Total observation lines decoded, scored, and stored.",
		}),
		LinesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "lines_skipped_total",
			Help:      "Malformed lines skipped, by reason.",
		}, []string{"reason"}),
		FactsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "facts_upserted_total",
			Help:      "Total weather facts written to the store.",
		}),
		FactsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "facts_rejected_total",
			Help:      "Facts rejected at the store boundary for raw-bound violations.",
		}),
		FilesArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "files_archived_total",
			Help:      "Source files fully processed and moved to the archive.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "files_failed_total",
			Help:      "Source files left in place for retry after a processing failure.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a complete watch-directory sweep.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		AggregationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "aggregation_runs_total",
			Help:      "Aggregation recomputes by granularity and outcome.",
		}, []string{"granularity", "outcome"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of a full aggregation recompute across granularities.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "pipeline_running",
			Help:      "1 when the sweep loop is active, 0 when shut down.",
		}),
	}
}
