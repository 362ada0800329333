// Package async runs fire-and-forget background work safely.
//
// SafeGo wraps a goroutine with a timeout, panic recovery and error logging
// through the context's observability logger. The result cache uses it for
// Redis writes so a slow or failing cache never delays a search response.
//
//	async.SafeGo(context.WithoutCancel(ctx), 2*time.Second, "cache write", func(ctx context.Context) error {
//		return rdb.Set(ctx, key, payload, ttl).Err()
//	})
//
// # Related Packages
//
//   - pkg/cache: Asynchronous L2 writes
//   - pkg/observability: Logger and panic recovery
package async
