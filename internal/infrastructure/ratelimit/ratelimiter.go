package ratelimit

import (
	"context"
	"time"
)

// RateLimiter bounds request rates per caller key over a sliding window.
type RateLimiter interface {
	// Allow reports whether one more request fits under the limit for key.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Remaining returns the number of requests already counted in the window.
	Remaining(ctx context.Context, key string, window time.Duration) (int64, error)
	// Reset clears all counters for key.
	Reset(ctx context.Context, key string) error
}
