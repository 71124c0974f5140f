// Package cli wires the weatherctl commands: one-shot ingestion, summary
// recomputation, the read API, and the full pipeline daemon. Settings come
// from the environment via the config package; commands share a common
// bootstrap that opens the configured store backend.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/GvsSriRam/corteva-code-challenge/internal/config"
	"github.com/GvsSriRam/corteva-code-challenge/internal/observability"
	"github.com/GvsSriRam/corteva-code-challenge/internal/station"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store/postgres"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store/sqlite"
)

// NewRootCommand creates the root command for the weatherctl CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "weatherctl",
		Short:         "Station weather ingestion and aggregation pipeline",
		Long:          "weatherctl ingests raw station observation files, grades data quality, stores idempotent weather facts, and serves materialized summaries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewIngestCommand())
	cmd.AddCommand(NewAggregateCommand())
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewRunCommand())

	return cmd
}

// bootstrap holds the collaborators every command starts from.
type bootstrap struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	store    store.Store
	stations *station.Directory
}

// setup loads configuration, builds observability, opens and initializes
// the store, and loads the station directory when one is configured.
func setup(ctx context.Context) (*bootstrap, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	stations := station.Empty()
	if cfg.StationsFile != "" {
		stations, err = station.Load(cfg.StationsFile)
		if err != nil {
			st.Close()
			return nil, err
		}
		logger.Info("station directory loaded", "path", cfg.StationsFile)
	}

	return &bootstrap{cfg: cfg, logger: logger, metrics: metrics, store: st, stations: stations}, nil
}

func (b *bootstrap) close() {
	if err := b.store.Close(); err != nil {
		b.logger.Error("store close error", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.Open(cfg.DBDSN)
	case "postgres":
		return postgres.Open(ctx, cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
