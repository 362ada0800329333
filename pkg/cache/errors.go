package cache

import "errors"

var (
	// ErrCacheMiss is returned when a key is in neither tier
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidCacheKey is returned for a zero Key
	ErrInvalidCacheKey = errors.New("invalid cache key")
)
