// Package pipeline orchestrates ingestion: sweeping the watch directory,
// decoding and scoring observation lines, writing facts, and recomputing
// the materialized summaries.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/observability"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store"
)

// FileState is the lifecycle position of one source file within a sweep.
type FileState string

const (
	StateDiscovered      FileState = "discovered"
	StateProcessing      FileState = "processing"
	StateArchived        FileState = "archived"
	StateFailedRetryable FileState = "failed_retryable"
)

// FactStore is the slice of the store the sweeper writes through.
type FactStore interface {
	EnsureStation(ctx context.Context, st domain.Station) error
	UpsertFact(ctx context.Context, fact domain.WeatherFact) error
}

// StationResolver maps a station identifier to its dimension row.
type StationResolver interface {
	Resolve(id string) domain.Station
}

// FileReport records the outcome for one source file.
type FileReport struct {
	Path      string
	StationID string
	State     FileState
	Accepted  int
	Skipped   int
	Rejected  int
	Err       error
}

// SweepReport summarizes one pass over the watch directory.
type SweepReport struct {
	RunID    string
	Files    []FileReport
	Accepted int
	Skipped  int
	Rejected int
}

// Sweeper walks the watch directory, processes each matching file line by
// line, and archives files that complete. A file that hits a retryable
// store failure is left in place; because every line commits through an
// idempotent upsert, reprocessing it later converges on the same rows.
type Sweeper struct {
	watchDir   string
	archiveDir string
	fileExt    string
	source     string

	stations StationResolver
	store    FactStore
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSweeper creates a Sweeper over the given directories and store.
func NewSweeper(watchDir, archiveDir, fileExt, source string, stations StationResolver, st FactStore, logger *slog.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		watchDir:   watchDir,
		archiveDir: archiveDir,
		fileExt:    fileExt,
		source:     source,
		stations:   stations,
		store:      st,
		logger:     logger,
		metrics:    metrics,
	}
}

// Sweep runs one pass: discover, process, archive. Files are visited in
// name order so repeated sweeps over the same directory are deterministic.
// Per-file failures are recorded in the report, not returned; only an
// unreadable watch directory fails the sweep itself.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	report := SweepReport{RunID: uuid.NewString()}

	entries, err := os.ReadDir(s.watchDir)
	if err != nil {
		return report, fmt.Errorf("read watch dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), s.fileExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		fr := s.processFile(ctx, name, report.RunID)
		report.Files = append(report.Files, fr)
		report.Accepted += fr.Accepted
		report.Skipped += fr.Skipped
		report.Rejected += fr.Rejected
	}

	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	if len(report.Files) > 0 {
		s.logger.Info("sweep complete",
			"run_id", report.RunID,
			"files", len(report.Files),
			"accepted", report.Accepted,
			"skipped", report.Skipped,
			"rejected", report.Rejected,
		)
	}
	return report, nil
}

// processFile ingests one source file. The station identifier is the file
// name without its extension.
func (s *Sweeper) processFile(ctx context.Context, name, runID string) FileReport {
	fr := FileReport{
		Path:      filepath.Join(s.watchDir, name),
		StationID: strings.TrimSuffix(name, s.fileExt),
		State:     StateProcessing,
	}
	logger := s.logger.With("run_id", runID, "file", name, "station_id", fr.StationID)

	if err := s.store.EnsureStation(ctx, s.stations.Resolve(fr.StationID)); err != nil {
		return s.fail(logger, fr, fmt.Errorf("ensure station: %w", err))
	}

	f, err := os.Open(fr.Path)
	if err != nil {
		return s.fail(logger, fr, fmt.Errorf("open file: %w", err))
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		obs, err := domain.Decode(line)
		if err != nil {
			fr.Skipped++
			s.metrics.LinesSkipped.WithLabelValues(skipReason(err)).Inc()
			logger.Warn("skipping malformed line", "line", lineNo, "error", err)
			continue
		}

		quality := domain.ScoreQuality(obs.MaxTempC, obs.MinTempC, obs.PrecipMM)
		fact := domain.NewFact(fr.StationID, s.source, runID, obs, quality)

		if err := s.store.UpsertFact(ctx, fact); err != nil {
			if errors.Is(err, store.ErrConstraintViolation) {
				fr.Rejected++
				s.metrics.FactsRejected.Inc()
				logger.Warn("fact rejected", "line", lineNo, "error", err)
				continue
			}
			return s.fail(logger, fr, fmt.Errorf("upsert line %d: %w", lineNo, err))
		}
		fr.Accepted++
		s.metrics.LinesAccepted.Inc()
		s.metrics.FactsUpserted.Inc()
	}
	if err := scanner.Err(); err != nil {
		return s.fail(logger, fr, fmt.Errorf("read file: %w", err))
	}

	if err := s.archive(name); err != nil {
		return s.fail(logger, fr, fmt.Errorf("archive file: %w", err))
	}
	fr.State = StateArchived
	s.metrics.FilesArchived.Inc()
	logger.Info("file archived", "accepted", fr.Accepted, "skipped", fr.Skipped, "rejected", fr.Rejected)
	return fr
}

func (s *Sweeper) fail(logger *slog.Logger, fr FileReport, err error) FileReport {
	fr.State = StateFailedRetryable
	fr.Err = err
	s.metrics.FilesFailed.Inc()
	logger.Error("file left for retry", "error", err)
	return fr
}

// archive moves a completed file out of the watch directory. Rename is
// attempted first; a cross-device move falls back to copy and remove.
func (s *Sweeper) archive(name string) error {
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(s.watchDir, name)
	dst := filepath.Join(s.archiveDir, name)

	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// skipReason buckets a decode error for the skip counter.
func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrFieldCount):
		return "field_count"
	case errors.Is(err, domain.ErrBadDate):
		return "bad_date"
	case errors.Is(err, domain.ErrBadNumber):
		return "bad_number"
	default:
		return "other"
	}
}
