package dataset

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanlens/usi-cli/internal/fetcher"
)

// ErrSuperseded is returned when a load finishes after a newer load
// has started. Callers must discard the superseded result so stale
// data is never rendered over fresh data.
var ErrSuperseded = eris.New("dataset: load superseded by a newer request")

// BodyCache persists dataset bodies keyed by source so an unchanged
// remote dataset is served from the cache instead of re-downloaded.
type BodyCache interface {
	// Get returns the cached etag and body for a source; ok is false
	// when no entry exists.
	Get(ctx context.Context, source string) (etag string, body []byte, ok bool, err error)

	// Set stores the body and etag for a source, replacing any entry.
	Set(ctx context.Context, source, etag string, body []byte) error
}

// Loader fetches and parses city datasets. A single Loader may be
// shared; concurrent loads are arbitrated by a generation counter and
// only the newest load's result survives.
type Loader struct {
	http  fetcher.ConditionalFetcher
	ftp   fetcher.Fetcher
	cache BodyCache
	gen   atomic.Uint64
}

// NewLoader creates a Loader using the given transports. The FTP
// fetcher may be nil if ftp:// sources are not needed.
func NewLoader(httpFetcher fetcher.ConditionalFetcher, ftpFetcher fetcher.Fetcher) *Loader {
	return &Loader{http: httpFetcher, ftp: ftpFetcher}
}

// WithCache attaches a body cache. HTTP GeoJSON loads then use
// conditional requests and fall back to the cached body when the
// server reports the dataset unchanged.
func (l *Loader) WithCache(c BodyCache) *Loader {
	l.cache = c
	return l
}

// Load fetches and parses the dataset at source, which may be a local
// path, an http(s) URL, or an ftp URL. GeoJSON is assumed unless the
// source ends in .shp. On any failure the error is returned once and
// no partial collection is produced.
func (l *Loader) Load(ctx context.Context, source string) (*Collection, error) {
	id := l.gen.Add(1)
	log := zap.L().With(
		zap.String("component", "dataset.loader"),
		zap.String("load_id", uuid.NewString()),
		zap.String("source", source),
	)
	log.Info("loading dataset")

	records, err := l.read(ctx, source)
	if err != nil {
		return nil, err
	}

	// A newer load started while this one was in flight; its result wins.
	if l.gen.Load() != id {
		log.Info("discarding superseded load")
		return nil, ErrSuperseded
	}

	log.Info("dataset loaded", zap.Int("records", len(records)))
	return &Collection{
		Source:   source,
		Records:  records,
		LoadedAt: time.Now(),
	}, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]Record, error) {
	isShapefile := strings.HasSuffix(strings.ToLower(source), ".shp")

	f, remote, err := l.transportFor(source)
	if err != nil {
		return nil, err
	}

	if !remote {
		if isShapefile {
			return ReadShapefile(source)
		}
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", source)
		}
		return ParseGeoJSON(data)
	}

	if isShapefile {
		// go-shp needs a seekable file on disk.
		path := filepath.Join(os.TempDir(), "usi-"+uuid.NewString()+".shp")
		defer func() { _ = os.Remove(path) }()
		if _, err := f.DownloadToFile(ctx, source, path); err != nil {
			return nil, err
		}
		return ReadShapefile(path)
	}

	if cf, ok := f.(fetcher.ConditionalFetcher); ok && l.cache != nil {
		return l.readCached(ctx, cf, source)
	}

	body, err := f.Download(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	return ReadGeoJSON(body)
}

// readCached downloads a GeoJSON source conditionally. An unchanged
// response is parsed from the cached body; a changed one refreshes the
// cache. Cache failures degrade to a plain download.
func (l *Loader) readCached(ctx context.Context, f fetcher.ConditionalFetcher, source string) ([]Record, error) {
	etag, cached, ok, err := l.cache.Get(ctx, source)
	if err != nil {
		zap.L().Warn("dataset cache read failed", zap.String("source", source), zap.Error(err))
		etag, ok = "", false
	}

	body, newETag, changed, err := f.DownloadIfChanged(ctx, source, etag)
	if err != nil {
		return nil, err
	}

	if !changed && ok {
		zap.L().Info("dataset unchanged, using cached body",
			zap.String("source", source),
			zap.String("etag", etag),
		)
		return ParseGeoJSON(cached)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", source)
	}

	if err := l.cache.Set(ctx, source, newETag, data); err != nil {
		zap.L().Warn("dataset cache write failed", zap.String("source", source), zap.Error(err))
	}

	return ParseGeoJSON(data)
}

// transportFor picks the fetcher for a source. Local paths return
// (nil, false, nil).
func (l *Loader) transportFor(source string) (fetcher.Fetcher, bool, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, false, nil
	}
	switch u.Scheme {
	case "http", "https":
		if l.http == nil {
			return nil, false, eris.New("dataset: no http fetcher configured")
		}
		return l.http, true, nil
	case "ftp":
		if l.ftp == nil {
			return nil, false, eris.New("dataset: no ftp fetcher configured")
		}
		return l.ftp, true, nil
	default:
		return nil, false, nil
	}
}
