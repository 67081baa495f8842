package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the window parameters of a single counter family.
type Config struct {
	// Prefix namespaces the keys, e.g. "dsi" for sign-in.
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts hits per identifier in fixed windows.
//
// A nil *Limiter allows everything.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check reports ErrRateLimited when the identifier is over budget, without
// counting a hit.
func (l *Limiter) Check(ctx context.Context, id string) error {
	if l == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Hit counts one attempt and returns ErrRateLimited when the window is now
// over budget.
func (l *Limiter) Hit(ctx context.Context, id string) error {
	if l == nil {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.key(id))
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for id.
func (l *Limiter) Reset(ctx context.Context, id string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter. Missing keys return zero.
func (l *Limiter) Attempts(ctx context.Context, id string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.key(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Window
}

func (l *Limiter) key(id string) string {
	prefix := l.config.Prefix
	if prefix == "" {
		prefix = "drl"
	}
	return prefix + ":" + id
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
