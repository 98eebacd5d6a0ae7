// Package app wires configuration into the storage, catalog, and registry
// components used by the dbtypes command.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cyclus/dbtypes/internal/cache"
	"github.com/cyclus/dbtypes/internal/catalog"
	"github.com/cyclus/dbtypes/internal/config"
	"github.com/cyclus/dbtypes/internal/logging"
	"github.com/cyclus/dbtypes/internal/observability"
	"github.com/cyclus/dbtypes/internal/source"
	"github.com/cyclus/dbtypes/internal/storage"
	"github.com/cyclus/dbtypes/pkg/registry"
)

// App owns the shared resources behind a configuration. Storage and the
// catalog are opened on first use so that commands which need neither do
// not touch the filesystem.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	stats  *observability.LookupStats

	mu       sync.Mutex
	storage  storage.ObjectStorage
	cache    *cache.ObjectCache
	catalog  *catalog.Catalog
	provider *registry.Provider
}

// Usage summarizes registry lookups and object cache traffic since the App
// was created.
type Usage struct {
	Tables    []observability.TableStats `json:"tables"`
	TopMisses []observability.MissStats  `json:"top_misses"`
	Cache     *CacheUsage                `json:"cache,omitempty"`
}

// CacheUsage is a snapshot of the object cache counters.
type CacheUsage struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Stale     int64   `json:"stale"`
	SizeBytes int64   `json:"size_bytes"`
	HitRate   float64 `json:"hit_rate"`
}

// New creates a new App with the given configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		stats:  observability.NewLookupStats(time.Hour),
	}, nil
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Usage reports lookup counters per table, the topN most missed keys, and
// the object cache counters when a cache is in use. Entries idle for longer
// than the stats window are dropped first.
func (a *App) Usage(topN int) Usage {
	a.stats.Prune()
	u := Usage{
		Tables:    a.stats.Tables(),
		TopMisses: a.stats.TopMisses(topN),
	}

	a.mu.Lock()
	c := a.cache
	a.mu.Unlock()
	if c != nil {
		hits, misses, stale, size := c.Metrics()
		u.Cache = &CacheUsage{
			Hits:      hits,
			Misses:    misses,
			Stale:     stale,
			SizeBytes: size,
			HitRate:   c.HitRate(),
		}
	}
	return u
}

// Storage returns the configured object storage, opening it if needed.
func (a *App) Storage(ctx context.Context) (storage.ObjectStorage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.storage != nil {
		return a.storage, nil
	}

	var (
		store storage.ObjectStorage
		err   error
	)
	switch a.cfg.Storage.Type {
	case "local":
		if err := a.cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		store, err = storage.NewLocalStorage(a.cfg.Storage.Path)
	case "s3":
		s3Cfg := storage.DefaultS3Config()
		if a.cfg.Storage.S3.Region != "" {
			s3Cfg.Region = a.cfg.Storage.S3.Region
		}
		if a.cfg.Storage.S3.Endpoint != "" {
			s3Cfg.Endpoint = a.cfg.Storage.S3.Endpoint
			s3Cfg.UsePathStyle = true
		}
		var remote *storage.S3Storage
		remote, err = storage.NewS3Storage(ctx, a.cfg.Storage.S3.Bucket, s3Cfg)
		if err == nil {
			store = remote
			if a.cfg.Storage.CacheDir != "" {
				var cached *cache.ObjectCache
				cached, err = cache.NewObjectCache(remote, a.cfg.Storage.CacheDir, a.cfg.Storage.CacheTTL, a.logger)
				if err == nil {
					a.cache = cached
					store = cached
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.cfg.Storage.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a.logger.Debug("storage initialized", zap.String("type", a.cfg.Storage.Type))
	if a.cfg.Storage.Type == "s3" {
		a.logger.Debug("s3 config",
			zap.String("bucket", a.cfg.Storage.S3.Bucket),
			zap.String("region", a.cfg.Storage.S3.Region),
			zap.String("endpoint", a.cfg.Storage.S3.Endpoint))
	}
	a.storage = store
	return store, nil
}

// Catalog returns the snapshot catalog, opening it if needed.
func (a *App) Catalog() (*catalog.Catalog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.catalog != nil {
		return a.catalog, nil
	}
	if err := a.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	c, err := catalog.NewCatalog(a.cfg.Catalog.Path, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}
	a.logger.Debug("catalog initialized", zap.String("path", a.cfg.Catalog.Path))
	a.catalog = c
	return c, nil
}

// Source builds the configured table source.
func (a *App) Source(ctx context.Context) (registry.Source, error) {
	switch a.cfg.Source.Type {
	case config.SourceEmbedded:
		return source.Embedded(), nil
	case config.SourceFile:
		return source.File(a.cfg.Source.Path), nil
	case config.SourceObject:
		store, err := a.Storage(ctx)
		if err != nil {
			return nil, err
		}
		return source.Object(store, a.cfg.Source.ObjectPath), nil
	case config.SourceSnapshot:
		c, err := a.Catalog()
		if err != nil {
			return nil, err
		}
		id := a.cfg.Source.SnapshotID
		if id == "" {
			latest, err := c.LatestSnapshot(ctx)
			if err != nil {
				return nil, err
			}
			id = latest.SnapshotID
		}
		return source.Snapshot(c, id), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", a.cfg.Source.Type)
	}
}

// Registry returns the registry for the configured source. It is built
// once per App.
func (a *App) Registry(ctx context.Context) (*registry.Registry, error) {
	a.mu.Lock()
	p := a.provider
	a.mu.Unlock()

	if p == nil {
		src, err := a.Source(ctx)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		if a.provider == nil {
			a.provider = registry.NewProvider(src,
				registry.WithLogger(a.logger),
				registry.WithStats(a.stats),
				registry.WithStrict(a.cfg.Strict),
			)
		}
		p = a.provider
		a.mu.Unlock()
	}
	return p.Get(ctx)
}

// Close releases the catalog connection, if opened.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			return fmt.Errorf("failed to close catalog: %w", err)
		}
		a.catalog = nil
	}
	return nil
}
