package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GvsSriRam/corteva-code-challenge/internal/pipeline"
)

// NewIngestCommand creates the one-shot ingestion command: a single sweep
// over the watch directory, with summaries recomputed when anything landed.
func NewIngestCommand() *cobra.Command {
	var skipAggregation bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one sweep over the watch directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := setup(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			sweeper := pipeline.NewSweeper(b.cfg.WatchDir, b.cfg.ArchiveDir, b.cfg.FileExt, b.cfg.Source,
				b.stations, b.store, b.logger, b.metrics)

			report, err := sweeper.Sweep(ctx)
			if err != nil {
				return err
			}

			if report.Accepted > 0 && !skipAggregation {
				aggregator := pipeline.NewAggregator(b.store, b.store, b.logger, b.metrics)
				if err := aggregator.Recompute(ctx); err != nil {
					return err
				}
			}

			var failed int
			for _, fr := range report.Files {
				if fr.State == pipeline.StateFailedRetryable {
					failed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "files=%d accepted=%d skipped=%d rejected=%d failed=%d\n",
				len(report.Files), report.Accepted, report.Skipped, report.Rejected, failed)
			if failed > 0 {
				return fmt.Errorf("%d file(s) left for retry", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipAggregation, "skip-aggregation", false, "do not recompute summaries after the sweep")
	return cmd
}
