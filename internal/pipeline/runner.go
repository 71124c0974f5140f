package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/GvsSriRam/corteva-code-challenge/internal/observability"
)

// Runner drives the sweep-then-aggregate loop on a fixed interval until the
// context is cancelled.
type Runner struct {
	sweeper    *Sweeper
	aggregator *Aggregator
	interval   time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewRunner creates a Runner over the given sweeper and aggregator.
func NewRunner(sweeper *Sweeper, aggregator *Aggregator, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		sweeper:    sweeper,
		aggregator: aggregator,
		interval:   interval,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run executes sweeps until the context is cancelled. Summaries are
// recomputed after any sweep that accepted records. A failed sweep backs
// off exponentially, starting at 200ms and capping at 5s, so a broken
// watch directory or store outage does not spin the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("pipeline started", "interval", r.interval)
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		if ctx.Err() != nil {
			r.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		report, err := r.sweeper.Sweep(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("sweep failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		if report.Accepted > 0 {
			if err := r.aggregator.Recompute(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("aggregation failed", "error", err, "run_id", report.RunID)
			}
		}

		if !sleepWithContext(ctx, r.interval) {
			r.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
