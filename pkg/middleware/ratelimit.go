package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openglide/skysearch/pkg/httputil"
	"github.com/openglide/skysearch/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the sustained number of requests per window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 60,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// capacity is the most requests a fresh client may send at once
func (c *RateLimitConfig) capacity() int {
	return c.RequestsPerWindow + c.BurstSize
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int

	// RetryAfter is how long a rejected client should wait; zero when allowed
	RetryAfter time.Duration
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter is an in-process token bucket limiter keyed by client.
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// refillRate is tokens per second
func (rl *RateLimiter) refillRate() float64 {
	return float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds()
}

// Allow takes a token from key's bucket. It never returns an error.
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	capacity := float64(rl.config.capacity())

	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{tokens: capacity, lastUpdate: now}
		rl.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	if elapsed := now.Sub(b.lastUpdate); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed.Seconds()*rl.refillRate())
		b.lastUpdate = now
	}

	decision := Decision{Limit: rl.config.capacity()}
	if b.tokens >= 1 {
		b.tokens--
		decision.Allowed = true
	} else {
		wait := (1 - b.tokens) / rl.refillRate()
		decision.RetryAfter = time.Duration(wait * float64(time.Second))
	}
	decision.Remaining = int(b.tokens)

	return decision, nil
}

// Cleanup removes buckets idle long enough to have refilled completely
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
	}
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// StartCleanup runs Cleanup once per window until ctx is cancelled
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimitMiddleware provides HTTP rate limiting per client address
type RateLimitMiddleware struct {
	limiter    Limiter
	fallback   Limiter
	trustProxy bool
}

// RateLimitOption configures a RateLimitMiddleware.
type RateLimitOption func(*RateLimitMiddleware)

// WithFallback checks requests against l while the primary limiter is failing.
// Without a fallback such requests are let through.
func WithFallback(l Limiter) RateLimitOption {
	return func(m *RateLimitMiddleware) {
		m.fallback = l
	}
}

// WithTrustedProxyHeaders keys clients by X-Forwarded-For / X-Real-IP.
// Only enable behind a proxy that sets them.
func WithTrustedProxyHeaders() RateLimitOption {
	return func(m *RateLimitMiddleware) {
		m.trustProxy = true
	}
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter Limiter, opts ...RateLimitOption) *RateLimitMiddleware {
	m := &RateLimitMiddleware{limiter: limiter}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := "ip:" + m.clientIP(r)

		decision, err := m.limiter.Allow(ctx, key)
		if err != nil {
			logger := observability.FromContext(ctx).WithError(err)
			if m.fallback == nil {
				logger.Warn("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			logger.Warn("rate limiter unavailable, using local limits")
			if decision, err = m.fallback.Allow(ctx, key); err != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

		if !decision.Allowed {
			rateLimitExceeded(w, decision)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func rateLimitExceeded(w http.ResponseWriter, decision Decision) {
	retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}

	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
		"error":       "rate limit exceeded",
		"retry_after": retryAfter,
	})
}

func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	if m.trustProxy {
		// Left-most entry is the original client
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
