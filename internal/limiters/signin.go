package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/dealAuth/internal"
	"github.com/MrEthical07/dealAuth/internal/rate"
	"github.com/redis/go-redis/v9"
)

// ErrSignInRateLimited is returned while an identifier or IP is cooling down.
var ErrSignInRateLimited = errors.New("sign-in rate limited")

type SignInConfig struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// SignInLimiter counts failed sign-ins. Successful sign-ins reset the
// identifier counter.
type SignInLimiter struct {
	user *rate.Limiter
	ip   *rate.Limiter
}

func NewSignInLimiter(redisClient redis.UniversalClient, cfg SignInConfig) *SignInLimiter {
	l := &SignInLimiter{
		user: rate.New(redisClient, rate.Config{Prefix: "dsi", MaxAttempts: cfg.MaxAttempts, Window: cfg.Cooldown}),
	}
	if cfg.EnableIPThrottle {
		l.ip = rate.New(redisClient, rate.Config{Prefix: "dsiip", MaxAttempts: cfg.MaxAttempts, Window: cfg.Cooldown})
	}
	return l
}

// Check fails with ErrSignInRateLimited when either counter is exhausted.
func (l *SignInLimiter) Check(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if err := mapSignIn(l.user.Check(ctx, internal.HashIdentifier(email))); err != nil {
		return err
	}
	if ip != "" {
		return mapSignIn(l.ip.Check(ctx, ip))
	}
	return nil
}

// RecordFailure counts one failed attempt.
func (l *SignInLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if err := mapSignIn(l.user.Hit(ctx, internal.HashIdentifier(email))); err != nil {
		return err
	}
	if ip != "" {
		return mapSignIn(l.ip.Hit(ctx, ip))
	}
	return nil
}

// Reset clears the identifier counter after a successful sign-in.
func (l *SignInLimiter) Reset(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	return l.user.Reset(ctx, internal.HashIdentifier(email))
}

func mapSignIn(err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrSignInRateLimited
	}
	return err
}
