package async

import (
	"context"
	"time"

	"github.com/openglide/skysearch/pkg/observability"
)

// SafeGo runs fn in a goroutine with a timeout, panic recovery and error
// logging. Failures are logged through the logger carried by parentCtx and
// never reach the caller.
//
// Request-scoped callers that must outlive the response should detach first:
//
//	SafeGo(context.WithoutCancel(r.Context()), 2*time.Second, "cache write", func(ctx context.Context) error {
//	    return client.Set(ctx, key, value, ttl).Err()
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		logger := observability.FromContext(parentCtx).WithField("task", taskName)
		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
