// Package middleware provides HTTP rate limiting for the search API.
//
// # Overview
//
// Clients are keyed by address and checked before a request reaches the
// router. A rejected request gets 429 with Retry-After and a JSON body; every
// checked response carries X-RateLimit-Limit and X-RateLimit-Remaining.
//
// # Limiters
//
// RateLimiter: in-process token bucket
//
//	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
//		RequestsPerWindow: 60,
//		WindowDuration:    time.Minute,
//		BurstSize:         10,
//	})
//	limiter.StartCleanup(ctx)
//
// DistributedRateLimiter: fixed window shared through Redis
//
//	shared := middleware.NewDistributedRateLimiter(redisClient, cfg, "")
//
// # Middleware
//
//	mw := middleware.NewRateLimitMiddleware(shared,
//		middleware.WithFallback(limiter),
//		middleware.WithTrustedProxyHeaders(),
//	)
//	handler := mw.Handler(router)
//
// When the shared limiter errors, requests are checked against the fallback,
// or let through when there is none.
package middleware
