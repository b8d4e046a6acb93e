package rate

import (
	"context"
	"time"
)

// Limiter enforces the global per-client request ceiling.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (allowed bool, retryAfter time.Duration, err error)
}
