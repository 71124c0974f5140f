package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/pipeline"
)

// NewAggregateCommand creates the command that recomputes materialized
// summaries from the stored facts.
func NewAggregateCommand() *cobra.Command {
	var granularity string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recompute materialized weather summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var granularities []domain.Granularity
			if granularity != "" {
				g := domain.Granularity(granularity)
				if !g.Valid() {
					return fmt.Errorf("invalid granularity %q: must be one of %v", granularity, domain.Granularities())
				}
				granularities = append(granularities, g)
			}

			ctx := cmd.Context()
			b, err := setup(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			aggregator := pipeline.NewAggregator(b.store, b.store, b.logger, b.metrics)
			return aggregator.Recompute(ctx, granularities...)
		},
	}

	cmd.Flags().StringVar(&granularity, "granularity", "", "recompute only one granularity (annual|monthly|quarterly)")
	return cmd
}
