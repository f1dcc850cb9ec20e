package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanlens/usi-cli/internal/dataset"
	"github.com/urbanlens/usi-cli/internal/fetcher"
	"github.com/urbanlens/usi-cli/internal/projector"
	"github.com/urbanlens/usi-cli/internal/resilience"
	"github.com/urbanlens/usi-cli/internal/resolve"
	"github.com/urbanlens/usi-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "usi.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initLoader() *dataset.Loader {
	retry := resilience.DefaultRetryConfig()
	if cfg.Dataset.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Dataset.MaxRetries
	}

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Dataset.UserAgent,
		Timeout:      time.Duration(cfg.Dataset.TimeoutSecs) * time.Second,
		Retry:        retry,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	return dataset.NewLoader(httpFetcher, fetcher.NewFTPFetcher(fetcher.FTPOptions{}))
}

// storeCache adapts the store's dataset cache to the loader.
type storeCache struct {
	st store.Store
}

func (c storeCache) Get(ctx context.Context, source string) (string, []byte, bool, error) {
	dc, err := c.st.GetCachedDataset(ctx, source)
	if err != nil || dc == nil {
		return "", nil, false, err
	}
	return dc.ETag, dc.Body, true, nil
}

func (c storeCache) Set(ctx context.Context, source, etag string, body []byte) error {
	return c.st.SetCachedDataset(ctx, source, etag, body)
}

// openCachedStore opens the configured store for use as a dataset body
// cache. A store that cannot be opened is not fatal: loads proceed
// without the cache.
func openCachedStore(ctx context.Context) store.Store {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("store unavailable, loading without dataset cache", zap.Error(err))
		return nil
	}
	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("store migration failed, loading without dataset cache", zap.Error(err))
		_ = st.Close()
		return nil
	}
	return st
}

func initCandidates() (resolve.Candidates, error) {
	if cfg.Resolver.CandidatesFile == "" {
		return resolve.DefaultCandidates(), nil
	}
	return resolve.LoadCandidates(cfg.Resolver.CandidatesFile)
}

// loadProjected loads the dataset from source and projects every record
// into a view model. source falls back to the configured default.
func loadProjected(ctx context.Context, source string) ([]projector.ViewModel, resolve.KeySet, *dataset.Collection, error) {
	if source == "" {
		source = cfg.Dataset.Source
	}
	if source == "" {
		return nil, resolve.KeySet{}, nil, eris.New("no dataset source: pass --source or set dataset.source in config")
	}

	candidates, err := initCandidates()
	if err != nil {
		return nil, resolve.KeySet{}, nil, err
	}

	loader := initLoader()
	if st := openCachedStore(ctx); st != nil {
		defer st.Close() //nolint:errcheck
		loader = loader.WithCache(storeCache{st: st})
	}

	col, err := loader.Load(ctx, source)
	if err != nil {
		return nil, resolve.KeySet{}, nil, err
	}

	models, keys := projector.ProjectAll(ctx, col, candidates)
	return models, keys, col, nil
}
