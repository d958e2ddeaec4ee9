package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "satudata:ratelimit:"

// RateLimitRepository counts requests per identity in fixed Redis windows.
type RateLimitRepository struct {
	client *redis.Client
}

// NewRateLimitRepository constructs the repository.
func NewRateLimitRepository(client *redis.Client) *RateLimitRepository {
	return &RateLimitRepository{client: client}
}

// Increment bumps the counter for identity and returns the new count and the
// time left in the current window. The window starts with SET NX EX, so the
// expiry is only set on the first hit and works on any Redis since 2.6.12.
func (r *RateLimitRepository) Increment(ctx context.Context, identity string, window time.Duration) (int64, time.Duration, error) {
	key := rateLimitKeyPrefix + identity
	pipe := r.client.TxPipeline()
	pipe.SetNX(ctx, key, 0, window)
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit increment %s: %w", identity, err)
	}
	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// Current reads the counter for identity without bumping it. A missing key
// reads as zero.
func (r *RateLimitRepository) Current(ctx context.Context, identity string) (int64, time.Duration, error) {
	key := rateLimitKeyPrefix + identity
	pipe := r.client.Pipeline()
	count := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("rate limit read %s: %w", identity, err)
	}
	n, err := count.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit read %s: %w", identity, err)
	}
	remaining := ttl.Val()
	if remaining < 0 {
		remaining = 0
	}
	return n, remaining, nil
}
