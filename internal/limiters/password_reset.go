package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/dealAuth/internal"
	"github.com/MrEthical07/dealAuth/internal/rate"
	"github.com/redis/go-redis/v9"
)

var ErrResetRateLimited = errors.New("reset rate limited")

type PasswordResetConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

type PasswordResetLimiter struct {
	limiter *rate.Limiter
}

func NewPasswordResetLimiter(redisClient redis.UniversalClient, cfg PasswordResetConfig) *PasswordResetLimiter {
	return &PasswordResetLimiter{
		limiter: rate.New(redisClient, rate.Config{Prefix: "dpr", MaxAttempts: cfg.MaxAttempts, Window: cfg.Cooldown}),
	}
}

// CheckRequest counts one reset request for email.
func (l *PasswordResetLimiter) CheckRequest(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	err := l.limiter.Hit(ctx, internal.HashIdentifier(email))
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrResetRateLimited
	}
	return err
}

func (l *PasswordResetLimiter) Cooldown() time.Duration {
	if l == nil {
		return 0
	}
	return l.limiter.Window()
}
