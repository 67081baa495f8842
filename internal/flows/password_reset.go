package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/dealAuth/internal/limiters"
	"github.com/MrEthical07/dealAuth/remote"
)

// ResetDeps captures password reset flow dependencies.
type ResetDeps struct {
	Remote remote.Service
	// Limiter throttles requests per email. Nil disables throttling.
	Limiter *limiters.PasswordResetLimiter
}

type ResetResult struct {
	// Throttled is set when the remote call was skipped by the limiter.
	Throttled bool
	// Unregistered is set when the remote reported no such account.
	Unregistered bool
	// LimiterErr is a limiter backend failure; the request still went out.
	LimiterErr error
	Err        error
}

// RunPasswordReset asks the remote to mail a reset link for email. The
// caller is expected to report every non-Err outcome identically.
func RunPasswordReset(ctx context.Context, email string, deps ResetDeps) ResetResult {
	var res ResetResult

	if err := deps.Limiter.CheckRequest(ctx, email); err != nil {
		if errors.Is(err, limiters.ErrResetRateLimited) {
			res.Throttled = true
			return res
		}
		res.LimiterErr = err
	}

	err := deps.Remote.SendPasswordReset(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrNotFound):
		res.Unregistered = true
	default:
		res.Err = err
	}
	return res
}
