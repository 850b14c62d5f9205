package di

import (
	"context"
	"time"

	"data-migration/application/ports"
	"data-migration/domain/legacy"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const metadataKey = "dos-metadata"

// MetadataCache keeps DoS reference data for a TTL so a batch loads it once.
// Concurrent misses share one load.
type MetadataCache struct {
	source ports.MetadataProvider
	ttl    time.Duration
	items  *cache.Cache
	group  singleflight.Group
	logger *zap.Logger
}

// NewMetadataCache creates a new metadata cache. A non positive ttl caches
// for the lifetime of the process.
func NewMetadataCache(source ports.MetadataProvider, ttl time.Duration, logger *zap.Logger) *MetadataCache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MetadataCache{
		source: source,
		ttl:    ttl,
		// A single key expires lazily on read, so no janitor goroutine.
		items:  cache.New(ttl, 0),
		logger: logger,
	}
}

// Metadata returns the cached metadata, loading it on a miss.
func (c *MetadataCache) Metadata(ctx context.Context) (*legacy.Metadata, error) {
	if v, ok := c.items.Get(metadataKey); ok {
		return v.(*legacy.Metadata), nil
	}

	v, err, shared := c.group.Do(metadataKey, func() (interface{}, error) {
		metadata, err := c.source.Metadata(ctx)
		if err != nil {
			return nil, err
		}
		c.items.Set(metadataKey, metadata, cache.DefaultExpiration)
		return metadata, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Metadata cache miss", zap.Bool("shared", shared))
	return v.(*legacy.Metadata), nil
}

// Invalidate drops the cached metadata.
func (c *MetadataCache) Invalidate() {
	c.items.Delete(metadataKey)
}
