package cache

import "time"

const (
	// TierMemory labels the in-process LRU
	TierMemory = "l1"

	// TierRedis labels the shared Redis tier
	TierRedis = "l2"
)

// Config holds cache configuration
type Config struct {
	MaxEntries   int           // Max L1 entries (default: 1024)
	TTL          time.Duration // TTL for both tiers (default: 30s)
	WriteTimeout time.Duration // Timeout for async L2 writes (default: 2s)
}

// DefaultConfig returns default cache configuration
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:   1024,
		TTL:          30 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	HitRate   float64
	ItemCount int64
}

// Recorder receives per-tier cache events. *observability.Metrics implements it.
type Recorder interface {
	RecordCacheHit(tier string)
	RecordCacheMiss(tier string)
	RecordCacheError(tier, operation string)
}
