package backend

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotVerified   = errors.New("email not confirmed")
	ErrEmailTaken         = errors.New("user already registered")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrNotFound           = errors.New("not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrProfileExists      = errors.New("profile already exists")
	ErrRateLimited        = errors.New("too many requests")
	ErrForbidden          = errors.New("session does not own this profile")
)
