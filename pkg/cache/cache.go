package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/openglide/skysearch/pkg/async"
	"github.com/openglide/skysearch/pkg/observability"
)

// ResultCache stores serialized search responses in an in-memory LRU and,
// when a Redis client is given, in Redis as a shared second tier. Values are
// the exact response bytes, so a hit can never reorder results.
type ResultCache struct {
	config  *Config
	l1      *lru.LRU[string, []byte]
	l2      *redis.Client
	metrics Recorder

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithRedis enables the Redis tier.
func WithRedis(client *redis.Client) Option {
	return func(c *ResultCache) {
		c.l2 = client
	}
}

// WithRecorder reports hits, misses and errors per tier.
func WithRecorder(r Recorder) Option {
	return func(c *ResultCache) {
		c.metrics = r
	}
}

// New creates a result cache.
func New(config *Config, opts ...Option) *ResultCache {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.MaxEntries <= 0 {
		config.MaxEntries = defaults.MaxEntries
	}
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	c := &ResultCache{
		config: config,
		l1:     lru.NewLRU[string, []byte](config.MaxEntries, nil, config.TTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached response for key. A Redis hit is copied into the
// memory tier. Redis failures are logged and reported as a miss.
func (c *ResultCache) Get(ctx context.Context, key Key) ([]byte, error) {
	if !key.Valid() {
		return nil, ErrInvalidCacheKey
	}
	k := key.String()

	if value, ok := c.l1.Get(k); ok {
		c.recordHit(TierMemory)
		return value, nil
	}
	c.recordMiss(TierMemory)

	if c.l2 == nil {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	value, err := c.l2.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		c.recordHit(TierRedis)
		c.l1.Add(k, value)
		return value, nil
	case errors.Is(err, redis.Nil):
		c.recordMiss(TierRedis)
	default:
		c.recordError(TierRedis, "get")
		observability.FromContext(ctx).WithError(err).Warn("result cache read failed")
	}

	c.misses.Add(1)
	return nil, ErrCacheMiss
}

// Set stores a response. The Redis write happens in the background and
// survives the request context being cancelled.
func (c *ResultCache) Set(ctx context.Context, key Key, value []byte) error {
	if !key.Valid() {
		return ErrInvalidCacheKey
	}
	k := key.String()

	c.l1.Add(k, value)

	if c.l2 != nil {
		async.SafeGo(context.WithoutCancel(ctx), c.config.WriteTimeout, "result cache write", func(ctx context.Context) error {
			if err := c.l2.Set(ctx, k, value, c.config.TTL).Err(); err != nil {
				c.recordError(TierRedis, "set")
				return err
			}
			return nil
		})
	}

	return nil
}

// Purge empties the memory tier. Redis entries expire on their own.
func (c *ResultCache) Purge() {
	c.l1.Purge()
}

// Stats returns cache statistics across both tiers
func (c *ResultCache) Stats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		ItemCount: int64(c.l1.Len()),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *ResultCache) recordHit(tier string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.RecordCacheHit(tier)
	}
}

func (c *ResultCache) recordMiss(tier string) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(tier)
	}
}

func (c *ResultCache) recordError(tier, operation string) {
	if c.metrics != nil {
		c.metrics.RecordCacheError(tier, operation)
	}
}
