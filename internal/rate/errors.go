package rate

import "errors"

var (
	// ErrRateLimited is returned once a window has seen more than MaxAttempts hits.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
