package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/db"
	"github.com/urbanlens/usi-cli/internal/projector"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection
// for the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_cached_dataset": `SELECT source, etag, body, fetched_at FROM dataset_cache WHERE source = $1`,
	"set_cached_dataset": `INSERT INTO dataset_cache (source, etag, body, fetched_at) VALUES ($1, $2, $3, $4) ON CONFLICT (source) DO UPDATE SET etag = EXCLUDED.etag, body = EXCLUDED.body, fetched_at = EXCLUDED.fetched_at`,
	"insert_summary":     `INSERT INTO usi_summaries (id, source, counts, created_at) VALUES ($1, $2, $3, $4)`,
	"list_summaries":     `SELECT id, source, counts, created_at FROM usi_summaries WHERE source = $1 ORDER BY created_at DESC LIMIT $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dataset_cache (
	source     TEXT PRIMARY KEY,
	etag       TEXT NOT NULL DEFAULT '',
	body       BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS usi_summaries (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source     TEXT NOT NULL,
	counts     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS city_snapshots (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL,
	tier        TEXT NOT NULL,
	score       DOUBLE PRECISION,
	color       TEXT NOT NULL,
	radius      DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION,
	lat         DOUBLE PRECISION,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_usi_summaries_source ON usi_summaries(source);
CREATE INDEX IF NOT EXISTS idx_city_snapshots_source ON city_snapshots(source);
CREATE INDEX IF NOT EXISTS idx_city_snapshots_tier ON city_snapshots(tier);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// GetCachedDataset returns the cached document for a source, or nil
// when no cache entry exists.
func (s *PostgresStore) GetCachedDataset(ctx context.Context, source string) (*DatasetCache, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT source, etag, body, fetched_at FROM dataset_cache WHERE source = $1`, source)

	var dc DatasetCache
	if err := row.Scan(&dc.Source, &dc.ETag, &dc.Body, &dc.FetchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached dataset")
	}
	return &dc, nil
}

// SetCachedDataset upserts the cached document for a source.
func (s *PostgresStore) SetCachedDataset(ctx context.Context, source, etag string, body []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dataset_cache (source, etag, body, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source) DO UPDATE SET
			etag = EXCLUDED.etag,
			body = EXCLUDED.body,
			fetched_at = EXCLUDED.fetched_at`,
		source, etag, body, time.Now().UTC())
	return eris.Wrap(err, "postgres: set cached dataset")
}

// SaveSummary persists one tier tally.
func (s *PostgresStore) SaveSummary(ctx context.Context, source string, counts map[classify.Tier]int) (*Summary, error) {
	data, err := json.Marshal(counts)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal counts")
	}

	summary := &Summary{
		ID:        uuid.NewString(),
		Source:    source,
		Counts:    counts,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO usi_summaries (id, source, counts, created_at) VALUES ($1, $2, $3, $4)`,
		summary.ID, summary.Source, data, summary.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: save summary")
	}
	return summary, nil
}

// ListSummaries returns the most recent tallies for a source.
func (s *PostgresStore) ListSummaries(ctx context.Context, source string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, counts, created_at FROM usi_summaries
		WHERE source = $1 ORDER BY created_at DESC LIMIT $2`, source, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list summaries")
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var counts []byte
		if err := rows.Scan(&sum.ID, &sum.Source, &counts, &sum.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		if err := json.Unmarshal(counts, &sum.Counts); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal counts")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list summaries")
}

// SaveCitySnapshots bulk-inserts projected view models via COPY.
func (s *PostgresStore) SaveCitySnapshots(ctx context.Context, source string, models []projector.ViewModel) (int64, error) {
	if len(models) == 0 {
		return 0, nil
	}

	columns := []string{"id", "source", "title", "tier", "score", "color", "radius", "lon", "lat", "captured_at"}
	now := time.Now().UTC()
	rows := make([][]any, len(models))
	for i, vm := range models {
		var score any
		if vm.Score != nil {
			score = *vm.Score
		}
		var lon, lat any
		if vm.HasPoint {
			lon, lat = vm.Lon, vm.Lat
		}
		rows[i] = []any{
			uuid.NewString(), source, vm.Title, string(vm.Tier), score,
			vm.Color, vm.Radius, lon, lat, now,
		}
	}

	n, err := db.CopyFrom(ctx, s.pool, "city_snapshots", columns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save city snapshots")
	}
	return n, nil
}
