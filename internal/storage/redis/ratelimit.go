package redis

import (
	"context"
	"fmt"
	"time"
)

// Counter is the subset of the Redis client the rate limiter needs.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter counts actions per user in fixed windows.
type RateLimiter struct {
	client Counter
	limit  int64
	window time.Duration
}

func NewRateLimiter(client Counter, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Exceeded increments the counter for userID and action and reports
// whether the limit for the current window has been passed.
func (r *RateLimiter) Exceeded(ctx context.Context, userID, action string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", userID, action)

	count, err := r.client.IncrWindow(ctx, key, r.window)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return count > r.limit, nil
}
