// Package postgres implements the store contract on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS stations (
	station_id TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	elevation  DOUBLE PRECISION,
	state      TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT 'USA',
	timezone   TEXT NOT NULL DEFAULT 'UTC',
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stations_state ON stations(state);

CREATE TABLE IF NOT EXISTS weather_facts (
	station_id       TEXT NOT NULL REFERENCES stations(station_id) ON DELETE CASCADE,
	observation_date DATE NOT NULL,
	source           TEXT NOT NULL DEFAULT 'manual',
	raw_max_temp     SMALLINT CHECK (raw_max_temp BETWEEN -9999 AND 6000 OR raw_max_temp IS NULL),
	raw_min_temp     SMALLINT CHECK (raw_min_temp BETWEEN -9999 AND 6000 OR raw_min_temp IS NULL),
	raw_precip       SMALLINT CHECK (raw_precip BETWEEN 0 AND 10000 OR raw_precip IS NULL),
	max_temp_c       DOUBLE PRECISION,
	min_temp_c       DOUBLE PRECISION,
	precip_mm        DOUBLE PRECISION,
	precip_cm        DOUBLE PRECISION,
	data_quality     TEXT NOT NULL,
	quality_score    DOUBLE PRECISION NOT NULL,
	missing_values   INTEGER NOT NULL DEFAULT 0,
	outlier_count    INTEGER NOT NULL DEFAULT 0,
	quality_notes    TEXT,
	ingested_at      TIMESTAMPTZ NOT NULL,
	ingest_run_id    TEXT,
	PRIMARY KEY (station_id, observation_date, source)
);
CREATE INDEX IF NOT EXISTS idx_facts_date ON weather_facts(observation_date);
CREATE INDEX IF NOT EXISTS idx_facts_quality ON weather_facts(data_quality);

CREATE TABLE IF NOT EXISTS weather_summaries (
	station_id        TEXT NOT NULL,
	granularity       TEXT NOT NULL,
	period_start      DATE NOT NULL,
	year              INTEGER NOT NULL,
	month             INTEGER,
	quarter           INTEGER,
	avg_max_temp_c    DOUBLE PRECISION,
	avg_min_temp_c    DOUBLE PRECISION,
	total_precip_mm   DOUBLE PRECISION,
	record_count      INTEGER NOT NULL,
	avg_quality_score DOUBLE PRECISION NOT NULL,
	computed_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (station_id, granularity, period_start)
);
`

// Store is the PostgreSQL-backed fact store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects a pgx pool to the given DSN.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Init creates the schema if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// EnsureStation inserts the station row if absent.
func (s *Store) EnsureStation(ctx context.Context, st domain.Station) error {
	const q = `
		INSERT INTO stations (station_id, name, latitude, longitude, elevation,
			state, country, timezone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (station_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q,
		st.StationID, st.Name, st.Latitude, st.Longitude, st.Elevation,
		st.State, st.Country, st.Timezone, st.Active, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ensure station %s: %w", st.StationID, err)
	}
	return nil
}

// UpsertFact writes one fact, replacing all non-key fields on conflict with
// the composite key. Raw bounds are checked before the row is admitted.
func (s *Store) UpsertFact(ctx context.Context, fact domain.WeatherFact) error {
	if err := fact.ValidateRaw(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrConstraintViolation, err)
	}

	const q = `
		INSERT INTO weather_facts (station_id, observation_date, source,
			raw_max_temp, raw_min_temp, raw_precip,
			max_temp_c, min_temp_c, precip_mm, precip_cm,
			data_quality, quality_score, missing_values, outlier_count, quality_notes,
			ingested_at, ingest_run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (station_id, observation_date, source) DO UPDATE SET
			raw_max_temp   = EXCLUDED.raw_max_temp,
			raw_min_temp   = EXCLUDED.raw_min_temp,
			raw_precip     = EXCLUDED.raw_precip,
			max_temp_c     = EXCLUDED.max_temp_c,
			min_temp_c     = EXCLUDED.min_temp_c,
			precip_mm      = EXCLUDED.precip_mm,
			precip_cm      = EXCLUDED.precip_cm,
			data_quality   = EXCLUDED.data_quality,
			quality_score  = EXCLUDED.quality_score,
			missing_values = EXCLUDED.missing_values,
			outlier_count  = EXCLUDED.outlier_count,
			quality_notes  = EXCLUDED.quality_notes,
			ingested_at    = EXCLUDED.ingested_at,
			ingest_run_id  = EXCLUDED.ingest_run_id`
	_, err := s.pool.Exec(ctx, q,
		fact.StationID, fact.ObservationDate, fact.Source,
		fact.RawMaxTemp, fact.RawMinTemp, fact.RawPrecip,
		fact.MaxTempC, fact.MinTempC, fact.PrecipMM, fact.PrecipCM,
		string(fact.DataQuality), fact.QualityScore, fact.MissingValues, fact.OutlierCount, fact.QualityNotes,
		fact.IngestedAt, fact.IngestRunID)
	if err != nil {
		return fmt.Errorf("upsert fact %s/%s: %w", fact.StationID, fact.ObservationDate.Format("2006-01-02"), err)
	}
	return nil
}

// FactMetrics streams the aggregation slice of every fact.
func (s *Store) FactMetrics(ctx context.Context) ([]domain.FactMetrics, error) {
	const q = `
		SELECT station_id, observation_date, max_temp_c, min_temp_c, precip_mm, quality_score
		FROM weather_facts`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query fact metrics: %w", err)
	}
	defer rows.Close()

	var metrics []domain.FactMetrics
	for rows.Next() {
		var m domain.FactMetrics
		if err := rows.Scan(&m.StationID, &m.Date, &m.MaxTempC, &m.MinTempC, &m.PrecipMM, &m.QualityScore); err != nil {
			return nil, fmt.Errorf("scan fact metrics: %w", err)
		}
		m.Date = m.Date.UTC()
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ReplaceSummaries swaps one granularity's rows inside a single transaction.
func (s *Store) ReplaceSummaries(ctx context.Context, g domain.Granularity, summaries []domain.Summary) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace %s summaries: %w", g, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM weather_summaries WHERE granularity = $1`, string(g)); err != nil {
		return fmt.Errorf("clear %s summaries: %w", g, err)
	}

	const q = `
		INSERT INTO weather_summaries (station_id, granularity, period_start,
			year, month, quarter,
			avg_max_temp_c, avg_min_temp_c, total_precip_mm,
			record_count, avg_quality_score, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	for _, sum := range summaries {
		_, err := tx.Exec(ctx, q,
			sum.StationID, string(sum.Granularity), sum.PeriodStart,
			sum.Year, zeroAsNull(sum.Month), zeroAsNull(sum.Quarter),
			sum.AvgMaxTempC, sum.AvgMinTempC, sum.TotalPrecipMM,
			sum.RecordCount, sum.AvgQualityScore, sum.ComputedAt)
		if err != nil {
			return fmt.Errorf("insert %s summary %s: %w", g, sum.StationID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s summaries: %w", g, err)
	}
	return nil
}

// ListStations returns one page of stations plus the unpaged total.
func (s *Store) ListStations(ctx context.Context, f store.StationFilter) ([]domain.Station, int, error) {
	var conds []string
	var args []any
	if f.State != "" {
		args = append(args, f.State)
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}
	if f.Country != "" {
		args = append(args, f.Country)
		conds = append(conds, fmt.Sprintf("country = $%d", len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		conds = append(conds, fmt.Sprintf("active = $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := s.count(ctx, "stations", where, args)
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	q := fmt.Sprintf(`SELECT station_id, name, latitude, longitude, elevation, state,
			country, timezone, active, created_at, updated_at
		FROM stations%s ORDER BY station_id LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, q, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var st domain.Station
		if err := rows.Scan(&st.StationID, &st.Name, &st.Latitude, &st.Longitude,
			&st.Elevation, &st.State, &st.Country, &st.Timezone, &st.Active,
			&st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan station: %w", err)
		}
		stations = append(stations, st)
	}
	return stations, total, rows.Err()
}

// ListFacts returns one page of weather facts plus the unpaged total.
func (s *Store) ListFacts(ctx context.Context, f store.FactFilter) ([]domain.WeatherFact, int, error) {
	var conds []string
	var args []any
	if f.StationID != "" {
		args = append(args, f.StationID)
		conds = append(conds, fmt.Sprintf("station_id = $%d", len(args)))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		conds = append(conds, fmt.Sprintf("source = $%d", len(args)))
	}
	if f.Quality != "" {
		args = append(args, f.Quality)
		conds = append(conds, fmt.Sprintf("data_quality = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("observation_date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("observation_date <= $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := s.count(ctx, "weather_facts", where, args)
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	q := fmt.Sprintf(`SELECT station_id, observation_date, source,
			raw_max_temp, raw_min_temp, raw_precip,
			max_temp_c, min_temp_c, precip_mm, precip_cm,
			data_quality, quality_score, missing_values, outlier_count, quality_notes,
			ingested_at, ingest_run_id
		FROM weather_facts%s
		ORDER BY station_id, observation_date, source LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, q, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var facts []domain.WeatherFact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, 0, err
		}
		facts = append(facts, fact)
	}
	return facts, total, rows.Err()
}

// ListSummaries returns one page of aggregation rows plus the unpaged total.
func (s *Store) ListSummaries(ctx context.Context, f store.SummaryFilter) ([]domain.Summary, int, error) {
	var conds []string
	var args []any
	if f.Granularity != "" {
		args = append(args, string(f.Granularity))
		conds = append(conds, fmt.Sprintf("granularity = $%d", len(args)))
	}
	if f.StationID != "" {
		args = append(args, f.StationID)
		conds = append(conds, fmt.Sprintf("station_id = $%d", len(args)))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := s.count(ctx, "weather_summaries", where, args)
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	q := fmt.Sprintf(`SELECT station_id, granularity, period_start, year, month, quarter,
			avg_max_temp_c, avg_min_temp_c, total_precip_mm,
			record_count, avg_quality_score, computed_at
		FROM weather_summaries%s
		ORDER BY station_id, granularity, period_start LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, q, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var (
			sum     domain.Summary
			gran    string
			month   *int
			quarter *int
		)
		if err := rows.Scan(&sum.StationID, &gran, &sum.PeriodStart, &sum.Year, &month, &quarter,
			&sum.AvgMaxTempC, &sum.AvgMinTempC, &sum.TotalPrecipMM,
			&sum.RecordCount, &sum.AvgQualityScore, &sum.ComputedAt); err != nil {
			return nil, 0, fmt.Errorf("scan summary: %w", err)
		}
		sum.Granularity = domain.Granularity(gran)
		sum.PeriodStart = sum.PeriodStart.UTC()
		if month != nil {
			sum.Month = *month
		}
		if quarter != nil {
			sum.Quarter = *quarter
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) count(ctx context.Context, table, where string, args []any) (int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func scanFact(rows pgx.Rows) (domain.WeatherFact, error) {
	var (
		fact    domain.WeatherFact
		quality string
		notes   *string
		runID   *string
	)
	err := rows.Scan(&fact.StationID, &fact.ObservationDate, &fact.Source,
		&fact.RawMaxTemp, &fact.RawMinTemp, &fact.RawPrecip,
		&fact.MaxTempC, &fact.MinTempC, &fact.PrecipMM, &fact.PrecipCM,
		&quality, &fact.QualityScore, &fact.MissingValues, &fact.OutlierCount, &notes,
		&fact.IngestedAt, &runID)
	if err != nil {
		return domain.WeatherFact{}, fmt.Errorf("scan fact: %w", err)
	}
	fact.ObservationDate = fact.ObservationDate.UTC()
	fact.DataQuality = domain.Tier(quality)
	if notes != nil {
		fact.QualityNotes = *notes
	}
	if runID != nil {
		fact.IngestRunID = *runID
	}
	return fact, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func zeroAsNull(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
