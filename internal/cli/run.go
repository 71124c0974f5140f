package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/GvsSriRam/corteva-code-challenge/internal/api"
	"github.com/GvsSriRam/corteva-code-challenge/internal/pipeline"
)

// NewRunCommand creates the daemon command: the sweep loop and the read API
// together, shut down gracefully on SIGINT or SIGTERM.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ingestion pipeline and read API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := setup(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			sweeper := pipeline.NewSweeper(b.cfg.WatchDir, b.cfg.ArchiveDir, b.cfg.FileExt, b.cfg.Source,
				b.stations, b.store, b.logger, b.metrics)
			aggregator := pipeline.NewAggregator(b.store, b.store, b.logger, b.metrics)
			runner := pipeline.NewRunner(sweeper, aggregator, b.cfg.SweepInterval, b.logger, b.metrics)

			srv := api.NewServer(b.cfg.HTTPAddr, b.store, b.logger)

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					b.logger.Error("http server error", "error", err)
				}
			}()

			go func() {
				if err := runner.Run(ctx); err != nil {
					b.logger.Error("pipeline error", "error", err)
				}
			}()

			<-ctx.Done()
			b.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), b.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				b.logger.Error("http server shutdown error", "error", err)
			}

			b.logger.Info("shutdown complete")
			return nil
		},
	}
}
