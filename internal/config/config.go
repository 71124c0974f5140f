package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	WatchDir   string
	ArchiveDir string
	FileExt    string
	Source     string

	// StationsFile optionally points at a YAML station-metadata directory.
	// Empty means every station gets the placeholder row.
	StationsFile string

	DBDriver string // "sqlite" or "postgres"
	DBDSN    string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	SweepInterval   time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. Validation failures here are fatal: no pipeline run begins
// on a bad configuration.
func Load() (*Config, error) {
	sweepInterval, err := parseDuration("SWEEP_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		WatchDir:        envOrDefault("WATCH_DIR", "data/incoming"),
		ArchiveDir:      envOrDefault("ARCHIVE_DIR", "data/archive"),
		FileExt:         envOrDefault("FILE_EXT", ".txt"),
		Source:          envOrDefault("SOURCE", domain.DefaultSource),
		StationsFile:    os.Getenv("STATIONS_FILE"),
		DBDriver:        envOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:           envOrDefault("DB_DSN", "weather.db"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		SweepInterval:   sweepInterval,
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.WatchDir == "" {
		return nil, errors.New("WATCH_DIR is required")
	}
	if cfg.ArchiveDir == "" {
		return nil, errors.New("ARCHIVE_DIR is required")
	}
	if cfg.WatchDir == cfg.ArchiveDir {
		return nil, errors.New("WATCH_DIR and ARCHIVE_DIR must differ")
	}
	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}
	if cfg.Source == "" {
		return nil, errors.New("SOURCE must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}
