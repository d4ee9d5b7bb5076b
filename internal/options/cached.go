package options

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"budgetfilter/internal/cache"
	"budgetfilter/internal/dimension"
)

// Cached memoizes another source per field. Concurrent misses for the same
// field share one upstream call. Errors are not cached.
type Cached struct {
	src   Source
	cache *cache.LRUCache[[]dimension.Option]
	group singleflight.Group
}

// NewCached wraps src with an LRU of size entries that expire after ttl.
func NewCached(src Source, size int, ttl time.Duration) *Cached {
	return &Cached{
		src:   src,
		cache: cache.NewLRUCache[[]dimension.Option](size, ttl),
	}
}

func (c *Cached) Options(ctx context.Context, field dimension.Field) ([]dimension.Option, error) {
	key := string(field)
	if opts, ok := c.cache.Get(key); ok {
		return append([]dimension.Option{}, opts...), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		opts, err := c.src.Options(ctx, field)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, opts)
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]dimension.Option{}, v.([]dimension.Option)...), nil
}

// Invalidate drops the cached options of field.
func (c *Cached) Invalidate(field dimension.Field) {
	c.cache.Delete(string(field))
}

// Cleaner exposes the underlying cache for periodic sweeping.
func (c *Cached) Cleaner() cache.Cleaner {
	return c.cache
}
