package remote

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("remote: invalid credentials")
	ErrNoSession          = errors.New("remote: no active session")
	ErrNotFound           = errors.New("remote: not found")
	ErrConflict           = errors.New("remote: already exists")
	ErrRateLimited        = errors.New("remote: rate limited")
	// ErrUnavailable covers connection failures, timeouts and 5xx answers.
	ErrUnavailable = errors.New("remote: unavailable")
	// ErrRejected covers any other 4xx answer.
	ErrRejected = errors.New("remote: request rejected")
)

// TransportError is returned when the backend could not be reached or
// answered with a server error. It matches ErrUnavailable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrUnavailable, e.Err)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is an unclassified 4xx answer. It matches ErrRejected.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, ErrRejected, e.Code)
	}
	return fmt.Sprintf("%s: %v (status %d): %s", e.Op, ErrRejected, e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRejected
}
