// Package cache provides a local disk tier in front of remote object
// storage, so published tables stay readable when the remote is slow or
// unreachable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"

	"github.com/cyclus/dbtypes/internal/logging"
	"github.com/cyclus/dbtypes/internal/storage"
)

// Metrics holds cache statistics for observability.
type Metrics struct {
	Hits      atomic.Int64
	Misses    atomic.Int64
	Stale     atomic.Int64 // served from disk after the remote failed
	SizeBytes atomic.Int64
}

// ObjectCache wraps an ObjectStorage with a read-through, write-through
// local copy of every object it has seen. Entries older than ttl are
// refetched; if the refetch fails the stale copy is served.
type ObjectCache struct {
	inner   storage.ObjectStorage
	dir     string
	ttl     time.Duration
	metrics Metrics
	logger  *zap.Logger
}

var _ storage.ObjectStorage = (*ObjectCache)(nil)

// NewObjectCache creates a cache in dir in front of inner. A ttl of zero
// means cached entries never expire.
func NewObjectCache(inner storage.ObjectStorage, dir string, ttl time.Duration, logger *zap.Logger) (*ObjectCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &ObjectCache{inner: inner, dir: dir, ttl: ttl, logger: logging.OrNop(logger)}, nil
}

// Metrics returns current cache metrics.
func (c *ObjectCache) Metrics() (hits, misses, stale, size int64) {
	return c.metrics.Hits.Load(), c.metrics.Misses.Load(), c.metrics.Stale.Load(), c.metrics.SizeBytes.Load()
}

// HitRate returns the cache hit rate as a percentage.
func (c *ObjectCache) HitRate() float64 {
	hits := c.metrics.Hits.Load()
	misses := c.metrics.Misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Get returns the cached copy when fresh, otherwise fetches from the inner
// storage and refreshes the copy.
func (c *ObjectCache) Get(ctx context.Context, objectPath string) ([]byte, error) {
	local := c.localPath(objectPath)
	info, statErr := os.Stat(local)
	if statErr == nil && (c.ttl <= 0 || time.Since(info.ModTime()) < c.ttl) {
		if data, err := os.ReadFile(local); err == nil {
			c.metrics.Hits.Add(1)
			return data, nil
		}
	}

	c.metrics.Misses.Add(1)
	data, err := c.inner.Get(ctx, objectPath)
	if err != nil {
		if statErr == nil && !errors.Is(err, storage.ErrObjectNotFound) {
			if stale, readErr := os.ReadFile(local); readErr == nil {
				c.metrics.Stale.Add(1)
				c.logger.Warn("serving stale cached object",
					zap.String("object", objectPath), zap.Error(err))
				return stale, nil
			}
		}
		return nil, err
	}

	c.store(objectPath, data)
	return data, nil
}

// Put writes through to the inner storage and caches the payload.
func (c *ObjectCache) Put(ctx context.Context, objectPath string, data []byte) (string, error) {
	etag, err := c.inner.Put(ctx, objectPath, data)
	if err != nil {
		return "", err
	}
	c.store(objectPath, data)
	return etag, nil
}

// Delete removes the object from the inner storage and the cache.
func (c *ObjectCache) Delete(ctx context.Context, objectPath string) error {
	if err := c.inner.Delete(ctx, objectPath); err != nil {
		return err
	}
	c.evict(objectPath)
	return nil
}

// Exists asks the inner storage.
func (c *ObjectCache) Exists(ctx context.Context, objectPath string) (bool, error) {
	return c.inner.Exists(ctx, objectPath)
}

// ListObjects asks the inner storage.
func (c *ObjectCache) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	return c.inner.ListObjects(ctx, prefix)
}

// store writes a payload to the cache directory. Cache write failures are
// logged and otherwise ignored.
func (c *ObjectCache) store(objectPath string, data []byte) {
	local := c.localPath(objectPath)
	var previous int64
	if info, err := os.Stat(local); err == nil {
		previous = info.Size()
	}

	if err := c.writeAtomic(local, data); err != nil {
		c.logger.Warn("failed to cache object", zap.String("object", objectPath), zap.Error(err))
		return
	}
	c.metrics.SizeBytes.Add(int64(len(data)) - previous)
}

// writeAtomic writes data to a temp file unique to this call and renames it
// over local, so concurrent writers never share a partial file.
func (c *ObjectCache) writeAtomic(local string, data []byte) error {
	f, err := os.CreateTemp(c.dir, filepath.Base(local)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (c *ObjectCache) evict(objectPath string) {
	local := c.localPath(objectPath)
	if info, err := os.Stat(local); err == nil {
		if os.Remove(local) == nil {
			c.metrics.SizeBytes.Add(-info.Size())
		}
	}
}

func (c *ObjectCache) localPath(objectPath string) string {
	return filepath.Join(c.dir, sanitizeFileName(objectPath))
}

// sanitizeFileName flattens an object path into a single file name that
// keeps the base name, and with it the format extension.
func sanitizeFileName(objectPath string) string {
	return fmt.Sprintf("%016x-%s", murmur3.Sum64([]byte(objectPath)), path.Base(objectPath))
}
