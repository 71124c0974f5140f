// Package sqlite implements the store contract on an embedded SQLite
// database via the pure-Go modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/GvsSriRam/corteva-code-challenge/internal/domain"
	"github.com/GvsSriRam/corteva-code-challenge/internal/store"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

const schema = `
CREATE TABLE IF NOT EXISTS stations (
	station_id TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	elevation  REAL,
	state      TEXT NOT NULL,
	country    TEXT NOT NULL DEFAULT 'USA',
	timezone   TEXT NOT NULL DEFAULT 'UTC',
	active     INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stations_state ON stations(state);

CREATE TABLE IF NOT EXISTS weather_facts (
	station_id       TEXT NOT NULL REFERENCES stations(station_id) ON DELETE CASCADE,
	observation_date TEXT NOT NULL,
	source           TEXT NOT NULL DEFAULT 'manual',
	raw_max_temp     INTEGER CHECK (raw_max_temp BETWEEN -9999 AND 6000 OR raw_max_temp IS NULL),
	raw_min_temp     INTEGER CHECK (raw_min_temp BETWEEN -9999 AND 6000 OR raw_min_temp IS NULL),
	raw_precip       INTEGER CHECK (raw_precip BETWEEN 0 AND 10000 OR raw_precip IS NULL),
	max_temp_c       REAL,
	min_temp_c       REAL,
	precip_mm        REAL,
	precip_cm        REAL,
	data_quality     TEXT NOT NULL,
	quality_score    REAL NOT NULL,
	missing_values   INTEGER NOT NULL DEFAULT 0,
	outlier_count    INTEGER NOT NULL DEFAULT 0,
	quality_notes    TEXT,
	ingested_at      TEXT NOT NULL,
	ingest_run_id    TEXT,
	PRIMARY KEY (station_id, observation_date, source)
);
CREATE INDEX IF NOT EXISTS idx_facts_date ON weather_facts(observation_date);
CREATE INDEX IF NOT EXISTS idx_facts_quality ON weather_facts(data_quality);

CREATE TABLE IF NOT EXISTS weather_summaries (
	station_id        TEXT NOT NULL,
	granularity       TEXT NOT NULL,
	period_start      TEXT NOT NULL,
	year              INTEGER NOT NULL,
	month             INTEGER,
	quarter           INTEGER,
	avg_max_temp_c    REAL,
	avg_min_temp_c    REAL,
	total_precip_mm   REAL,
	record_count      INTEGER NOT NULL,
	avg_quality_score REAL NOT NULL,
	computed_at       TEXT NOT NULL,
	PRIMARY KEY (station_id, granularity, period_start)
);
`

// Store is the SQLite-backed fact store.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at path, creating it if absent.
// WAL mode keeps readers (the API) unblocked during sweeps.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Init creates the schema if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// EnsureStation inserts the station row if absent. Existing rows are left
// untouched; metadata updates are an external concern.
func (s *Store) EnsureStation(ctx context.Context, st domain.Station) error {
	const q = `
		INSERT INTO stations (station_id, name, latitude, longitude, elevation,
			state, country, timezone, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, q,
		st.StationID, st.Name, st.Latitude, st.Longitude, nullFloat(st.Elevation),
		st.State, st.Country, st.Timezone, st.Active,
		st.CreatedAt.Format(timeLayout), st.UpdatedAt.Format(timeLayout))
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id, observation_date, source) DO UPDATE SET
			raw_max_temp   = excluded.raw_max_temp,
			raw_min_temp   = excluded.raw_min_temp,
			raw_precip     = excluded.raw_precip,
			max_temp_c     = excluded.max_temp_c,
			min_temp_c     = excluded.min_temp_c,
			precip_mm      = excluded.precip_mm,
			precip_cm      = excluded.precip_cm,
			data_quality   = excluded.data_quality,
			quality_score  = excluded.quality_score,
			missing_values = excluded.missing_values,
			outlier_count  = excluded.outlier_count,
			quality_notes  = excluded.quality_notes,
			ingested_at    = excluded.ingested_at,
			ingest_run_id  = excluded.ingest_run_id`
	_, err := s.db.ExecContext(ctx, q,
		fact.StationID, fact.ObservationDate.Format(dateLayout), fact.Source,
		nullInt(fact.RawMaxTemp), nullInt(fact.RawMinTemp), nullInt(fact.RawPrecip),
		nullFloat(fact.MaxTempC), nullFloat(fact.MinTempC), nullFloat(fact.PrecipMM), nullFloat(fact.PrecipCM),
		string(fact.DataQuality), fact.QualityScore, fact.MissingValues, fact.OutlierCount, fact.QualityNotes,
		fact.IngestedAt.Format(timeLayout), fact.IngestRunID)
	if err != nil {
		return fmt.Errorf("upsert fact %s/%s: %w", fact.StationID, fact.ObservationDate.Format(dateLayout), err)
	}
	return nil
}

// FactMetrics streams the aggregation slice of every fact.
func (s *Store) FactMetrics(ctx context.Context) ([]domain.FactMetrics, error) {
	const q = `
		SELECT station_id, observation_date, max_temp_c, min_temp_c, precip_mm, quality_score
		FROM weather_facts`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query fact metrics: %w", err)
	}
	defer rows.Close()

	var metrics []domain.FactMetrics
	for rows.Next() {
		var (
			m       domain.FactMetrics
			dateStr string
			maxT    sql.NullFloat64
			minT    sql.NullFloat64
			precip  sql.NullFloat64
		)
		if err := rows.Scan(&m.StationID, &dateStr, &maxT, &minT, &precip, &m.QualityScore); err != nil {
			return nil, fmt.Errorf("scan fact metrics: %w", err)
		}
		m.Date, err = time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse observation date %q: %w", dateStr, err)
		}
		m.MaxTempC = fromNullFloat(maxT)
		m.MinTempC = fromNullFloat(minT)
		m.PrecipMM = fromNullFloat(precip)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ReplaceSummaries swaps one granularity's rows inside a single transaction,
// so a failed recompute leaves the previous state visible.
func (s *Store) ReplaceSummaries(ctx context.Context, g domain.Granularity, summaries []domain.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s summaries: %w", g, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weather_summaries WHERE granularity = ?`, string(g)); err != nil {
		return fmt.Errorf("clear %s summaries: %w", g, err)
	}

	const q = `
		INSERT INTO weather_summaries (station_id, granularity, period_start,
			year, month, quarter,
			avg_max_temp_c, avg_min_temp_c, total_precip_mm,
			record_count, avg_quality_score, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, sum := range summaries {
		_, err := tx.ExecContext(ctx, q,
			sum.StationID, string(sum.Granularity), sum.PeriodStart.Format(dateLayout),
			sum.Year, zeroAsNull(sum.Month), zeroAsNull(sum.Quarter),
			nullFloat(sum.AvgMaxTempC), nullFloat(sum.AvgMinTempC), nullFloat(sum.TotalPrecipMM),
			sum.RecordCount, sum.AvgQualityScore, sum.ComputedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert %s summary %s/%s: %w", g, sum.StationID, sum.PeriodStart.Format(dateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s summaries: %w", g, err)
	}
	return nil
}

// ListStations returns one page of stations plus the unpaged total.
func (s *Store) ListStations(ctx context.Context, f store.StationFilter) ([]domain.Station, int, error) {
	var conds []string
	var args []any
	if f.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, f.State)
	}
	if f.Country != "" {
		conds = append(conds, "country = ?")
		args = append(args, f.Country)
	}
	if f.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, *f.Active)
	}
	where := whereClause(conds)

	total, err := s.count(ctx, "stations", where, args)
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	q := `SELECT station_id, name, latitude, longitude, elevation, state,
			country, timezone, active, created_at, updated_at
		FROM stations` + where + ` ORDER BY station_id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var (
			st         domain.Station
			elevation  sql.NullFloat64
			createdStr string
			updatedStr string
		)
		if err := rows.Scan(&st.StationID, &st.Name, &st.Latitude, &st.Longitude,
			&elevation, &st.State, &st.Country, &st.Timezone, &st.Active,
			&createdStr, &updatedStr); err != nil {
			return nil, 0, fmt.Errorf("scan station: %w", err)
		}
		st.Elevation = fromNullFloat(elevation)
		if st.CreatedAt, err = time.Parse(timeLayout, createdStr); err != nil {
			return nil, 0, fmt.Errorf("parse created_at: %w", err)
		}
		if st.UpdatedAt, err = time.Parse(timeLayout, updatedStr); err != nil {
			return nil, 0, fmt.Errorf("parse updated_at: %w", err)
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
		conds = append(conds, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if f.Quality != "" {
		conds = append(conds, "data_quality = ?")
		args = append(args, f.Quality)
	}
	if !f.From.IsZero() {
		conds = append(conds, "observation_date >= ?")
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		conds = append(conds, "observation_date <= ?")
		args = append(args, f.To.Format(dateLayout))
	}
	where := whereClause(conds)

	total, err := s.count(ctx, "weather_facts", where, args)
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	q := `SELECT station_id, observation_date, source,
			raw_max_temp, raw_min_temp, raw_precip,
			max_temp_c, min_temp_c, precip_mm, precip_cm,
			data_quality, quality_score, missing_values, outlier_count, quality_notes,
			ingested_at, ingest_run_id
		FROM weather_facts` + where + `
		ORDER BY station_id, observation_date, source LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, page.PerPage, page.Offset())...)
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
		conds = append(conds, "granularity = ?")
		args = append(args, string(f.Granularity))
	}
	if f.StationID != "" {
		conds = append(conds, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.Year != 0 {
		conds = append(conds, "year = ?")
		args = append(args, f.Year)
	}
	where := whereClause(conds)

	total, err := s.count(ctx, "weather_summaries", where, args)
	if err != nil {
		return nil, 0, err
	}

	page := f.Page.Normalize()
	q := `SELECT station_id, granularity, period_start, year, month, quarter,
			avg_max_temp_c, avg_min_temp_c, total_precip_mm,
			record_count, avg_quality_score, computed_at
		FROM weather_summaries` + where + `
		ORDER BY station_id, granularity, period_start LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.Summary
	for rows.Next() {
		var (
			sum         domain.Summary
			gran        string
			periodStr   string
			month       sql.NullInt64
			quarter     sql.NullInt64
			avgMax      sql.NullFloat64
			avgMin      sql.NullFloat64
			totalPrecip sql.NullFloat64
			computedStr string
		)
		if err := rows.Scan(&sum.StationID, &gran, &periodStr, &sum.Year, &month, &quarter,
			&avgMax, &avgMin, &totalPrecip, &sum.RecordCount, &sum.AvgQualityScore, &computedStr); err != nil {
			return nil, 0, fmt.Errorf("scan summary: %w", err)
		}
		sum.Granularity = domain.Granularity(gran)
		if sum.PeriodStart, err = time.Parse(dateLayout, periodStr); err != nil {
			return nil, 0, fmt.Errorf("parse period_start: %w", err)
		}
		if month.Valid {
			sum.Month = int(month.Int64)
		}
		if quarter.Valid {
			sum.Quarter = int(quarter.Int64)
		}
		sum.AvgMaxTempC = fromNullFloat(avgMax)
		sum.AvgMinTempC = fromNullFloat(avgMin)
		sum.TotalPrecipMM = fromNullFloat(totalPrecip)
		if sum.ComputedAt, err = time.Parse(timeLayout, computedStr); err != nil {
			return nil, 0, fmt.Errorf("parse computed_at: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) count(ctx context.Context, table, where string, args []any) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

func scanFact(rows *sql.Rows) (domain.WeatherFact, error) {
	var (
		fact        domain.WeatherFact
		dateStr     string
		rawMax      sql.NullInt64
		rawMin      sql.NullInt64
		rawPrecip   sql.NullInt64
		maxT        sql.NullFloat64
		minT        sql.NullFloat64
		precipMM    sql.NullFloat64
		precipCM    sql.NullFloat64
		quality     string
		notes       sql.NullString
		ingestedStr string
		runID       sql.NullString
	)
	err := rows.Scan(&fact.StationID, &dateStr, &fact.Source,
		&rawMax, &rawMin, &rawPrecip,
		&maxT, &minT, &precipMM, &precipCM,
		&quality, &fact.QualityScore, &fact.MissingValues, &fact.OutlierCount, &notes,
		&ingestedStr, &runID)
	if err != nil {
		return domain.WeatherFact{}, fmt.Errorf("scan fact: %w", err)
	}
	if fact.ObservationDate, err = time.Parse(dateLayout, dateStr); err != nil {
		return domain.WeatherFact{}, fmt.Errorf("parse observation date %q: %w", dateStr, err)
	}
	if fact.IngestedAt, err = time.Parse(timeLayout, ingestedStr); err != nil {
		return domain.WeatherFact{}, fmt.Errorf("parse ingested_at %q: %w", ingestedStr, err)
	}
	fact.RawMaxTemp = fromNullInt(rawMax)
	fact.RawMinTemp = fromNullInt(rawMin)
	fact.RawPrecip = fromNullInt(rawPrecip)
	fact.MaxTempC = fromNullFloat(maxT)
	fact.MinTempC = fromNullFloat(minT)
	fact.PrecipMM = fromNullFloat(precipMM)
	fact.PrecipCM = fromNullFloat(precipCM)
	fact.DataQuality = domain.Tier(quality)
	fact.QualityNotes = notes.String
	fact.IngestRunID = runID.String
	return fact, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func zeroAsNull(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
