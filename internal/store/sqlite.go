package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/projector"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dataset_cache (
	source     TEXT PRIMARY KEY,
	etag       TEXT NOT NULL DEFAULT '',
	body       BLOB NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS usi_summaries (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	counts     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS city_snapshots (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL,
	tier        TEXT NOT NULL,
	score       REAL,
	color       TEXT NOT NULL,
	radius      REAL NOT NULL,
	lon         REAL,
	lat         REAL,
	captured_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_usi_summaries_source ON usi_summaries(source);
CREATE INDEX IF NOT EXISTS idx_city_snapshots_source ON city_snapshots(source);
CREATE INDEX IF NOT EXISTS idx_city_snapshots_tier ON city_snapshots(tier);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCachedDataset returns the cached document for a source, or nil
// when no cache entry exists.
func (s *SQLiteStore) GetCachedDataset(ctx context.Context, source string) (*DatasetCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT source, etag, body, fetched_at FROM dataset_cache WHERE source = ?`, source)

	var dc DatasetCache
	if err := row.Scan(&dc.Source, &dc.ETag, &dc.Body, &dc.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get cached dataset")
	}
	return &dc, nil
}

// SetCachedDataset upserts the cached document for a source.
func (s *SQLiteStore) SetCachedDataset(ctx context.Context, source, etag string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dataset_cache (source, etag, body, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (source) DO UPDATE SET
			etag = excluded.etag,
			body = excluded.body,
			fetched_at = excluded.fetched_at`,
		source, etag, body, time.Now().UTC())
	return eris.Wrap(err, "sqlite: set cached dataset")
}

// SaveSummary persists one tier tally.
func (s *SQLiteStore) SaveSummary(ctx context.Context, source string, counts map[classify.Tier]int) (*Summary, error) {
	data, err := json.Marshal(counts)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal counts")
	}

	summary := &Summary{
		ID:        uuid.NewString(),
		Source:    source,
		Counts:    counts,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO usi_summaries (id, source, counts, created_at) VALUES (?, ?, ?, ?)`,
		summary.ID, summary.Source, string(data), summary.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: save summary")
	}
	return summary, nil
}

// ListSummaries returns the most recent tallies for a source.
func (s *SQLiteStore) ListSummaries(ctx context.Context, source string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, counts, created_at FROM usi_summaries
		WHERE source = ? ORDER BY created_at DESC LIMIT ?`, source, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list summaries")
	}
	defer rows.Close() //nolint:errcheck

	var out []Summary
	for rows.Next() {
		var sum Summary
		var counts string
		if err := rows.Scan(&sum.ID, &sum.Source, &counts, &sum.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		if err := json.Unmarshal([]byte(counts), &sum.Counts); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal counts")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list summaries")
}

// SaveCitySnapshots persists projected view models in one transaction.
func (s *SQLiteStore) SaveCitySnapshots(ctx context.Context, source string, models []projector.ViewModel) (int64, error) {
	if len(models) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin snapshots")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO city_snapshots (id, source, title, tier, score, color, radius, lon, lat, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare snapshot insert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, vm := range models {
		var score any
		if vm.Score != nil {
			score = *vm.Score
		}
		var lon, lat any
		if vm.HasPoint {
			lon, lat = vm.Lon, vm.Lat
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), source, vm.Title, string(vm.Tier), score,
			vm.Color, vm.Radius, lon, lat, now); err != nil {
			return n, eris.Wrap(err, "sqlite: insert snapshot")
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit snapshots")
	}
	return n, nil
}
