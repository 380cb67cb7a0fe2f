package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited reports that the caller exhausted the attempt budget for
	// the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable wraps Redis failures so callers can treat them as
	// infrastructure errors rather than policy decisions.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
)

// Limiter enforces fixed-window attempt budgets and cooldown locks backed by
// Redis counters: INCR plus a conditional EXPIRE on the first hit of a window.
type Limiter struct {
	redis redis.UniversalClient
}

// New creates a Limiter backed by the given Redis client.
func New(redisClient redis.UniversalClient) *Limiter {
	return &Limiter{redis: redisClient}
}

// Allow records one attempt against the key and fails with ErrRateLimited
// once the count within the window exceeds limit.
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	if count > limit {
		return ErrRateLimited
	}

	return nil
}

// Cooldown acquires a single-holder lock for the key, reporting false when a
// previous acquisition is still within its ttl. Used to cap repeat requests
// such as password-reset emails for one account.
func (l *Limiter) Cooldown(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := l.redis.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return acquired, nil
}

// Reset clears the window for the key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// LoginIPKey is the window key for login attempts from one address.
func LoginIPKey(ip string) string { return "rl:login:ip:" + ip }

// ResetIPKey is the window key for password-reset requests from one address.
func ResetIPKey(ip string) string { return "rl:reset:ip:" + ip }

// ResetUserKey is the cooldown key capping outstanding reset emails per user.
func ResetUserKey(userID string) string { return "rl:reset:user:" + userID }
