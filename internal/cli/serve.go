package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/GvsSriRam/corteva-code-challenge/internal/api"
)

// NewServeCommand creates the command that runs only the read API, without
// the ingestion loop.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API without ingesting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := setup(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			srv := api.NewServer(b.cfg.HTTPAddr, b.store, b.logger)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			b.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), b.cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
