// Package store persists fetched dataset documents and summary history
// behind a driver-selectable interface.
package store

import (
	"context"
	"time"

	"github.com/urbanlens/usi-cli/internal/classify"
	"github.com/urbanlens/usi-cli/internal/projector"
)

// DatasetCache is one cached dataset document, keyed by source.
type DatasetCache struct {
	Source    string    `json:"source"`
	ETag      string    `json:"etag"`
	Body      []byte    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Summary is one persisted tier tally.
type Summary struct {
	ID        string                `json:"id"`
	Source    string                `json:"source"`
	Counts    map[classify.Tier]int `json:"counts"`
	CreatedAt time.Time             `json:"created_at"`
}

// Store defines the persistence interface for the USI pipeline.
type Store interface {
	// Dataset cache
	GetCachedDataset(ctx context.Context, source string) (*DatasetCache, error)
	SetCachedDataset(ctx context.Context, source, etag string, body []byte) error

	// Summary history
	SaveSummary(ctx context.Context, source string, counts map[classify.Tier]int) (*Summary, error)
	ListSummaries(ctx context.Context, source string, limit int) ([]Summary, error)

	// Projected city snapshots
	SaveCitySnapshots(ctx context.Context, source string, models []projector.ViewModel) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
