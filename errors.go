package dealAuth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/dealAuth/internal/flows"
	"github.com/MrEthical07/dealAuth/remote"
)

var (
	// ErrInvalidEmail is returned when an address fails local validation.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWeakPassword is returned when a sign-up password is too short.
	ErrWeakPassword = errors.New("weak password")
	// ErrPasswordMismatch is returned when a password and its confirmation differ.
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrInvalidCredentials is returned when the remote rejects an email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRoleMismatch matches every *RoleMismatchError.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrUserNotFound is returned when the active user has no profile row.
	ErrUserNotFound = errors.New("user not found")
	// ErrRemote matches every *RemoteError.
	ErrRemote = errors.New("remote error")
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("network error")
	// ErrProviderNotImplemented matches every *ProviderError.
	ErrProviderNotImplemented = errors.New("sign-in provider not implemented")
	ErrManagerNotReady        = errors.New("manager not initialized")
)

// RoleMismatchError reports a sign-in whose stored profile role differs from
// the role the caller asked for.
type RoleMismatchError struct {
	Expected Role
	Actual   Role
}

func (e *RoleMismatchError) Error() string {
	return fmt.Sprintf("role mismatch: expected %s, profile is %s", e.Expected, e.Actual)
}

func (e *RoleMismatchError) Is(target error) bool {
	return target == ErrRoleMismatch
}

// RemoteError reports a remote call that completed with a failure.
//
// Partial is set when the credential was created but the profile row was
// not. Operators can retry the profile insert under the same user id.
type RemoteError struct {
	Op      string
	Detail  string
	Partial bool
}

func (e *RemoteError) Error() string {
	if e.Partial {
		return fmt.Sprintf("remote error: %s (partial): %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("remote error: %s: %s", e.Op, e.Detail)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// NetworkError reports a remote call that could not complete.
type NetworkError struct {
	Op     string
	Detail string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %s", e.Op, e.Detail)
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ProviderError is returned by the social sign-in stubs.
type ProviderError struct {
	Provider Provider
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s sign-in not implemented", e.Provider)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderNotImplemented
}

// ErrorKind classifies taxonomy errors.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindInvalidEmail
	KindWeakPassword
	KindPasswordMismatch
	KindInvalidCredentials
	KindRoleMismatch
	KindUserNotFound
	KindRemote
	KindNetwork
	KindProviderNotImplemented
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidEmail:
		return "invalid_email"
	case KindWeakPassword:
		return "weak_password"
	case KindPasswordMismatch:
		return "password_mismatch"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindRoleMismatch:
		return "role_mismatch"
	case KindUserNotFound:
		return "user_not_found"
	case KindRemote:
		return "remote_error"
	case KindNetwork:
		return "network_error"
	case KindProviderNotImplemented:
		return "provider_not_implemented"
	default:
		return "unknown"
	}
}

// KindOf returns the taxonomy class of err. A nil error is KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidEmail):
		return KindInvalidEmail
	case errors.Is(err, ErrWeakPassword):
		return KindWeakPassword
	case errors.Is(err, ErrPasswordMismatch):
		return KindPasswordMismatch
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrRoleMismatch):
		return KindRoleMismatch
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrRemote):
		return KindRemote
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrProviderNotImplemented):
		return KindProviderNotImplemented
	default:
		return KindUnknown
	}
}

const messageUnknown = "An unknown error occurred"

// Message returns the short text shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		mismatch *RoleMismatchError
		netErr   *NetworkError
		remErr   *RemoteError
		provErr  *ProviderError
	)
	switch {
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address"
	case errors.Is(err, ErrWeakPassword):
		return fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength)
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid login credentials"
	case errors.As(err, &mismatch):
		if mismatch.Expected == RolePartner {
			return "This account is not registered as a partner"
		}
		return "This account is registered as a partner"
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email address"
	case errors.As(err, &netErr):
		return "Network error: " + netErr.Detail
	case errors.As(err, &remErr):
		if remErr.Detail == "" {
			return messageUnknown
		}
		return remErr.Detail
	case errors.As(err, &provErr):
		return fmt.Sprintf("%s Sign In will be implemented soon", provErr.Provider)
	default:
		return messageUnknown
	}
}

// mapRemoteError converts errors from a remote.Service or a flow into the
// taxonomy. Taxonomy errors pass through; anything else is replaced, never
// wrapped.
func mapRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}

	var statusErr *remote.StatusError
	switch {
	case errors.Is(err, remote.ErrInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, remote.ErrUnavailable):
		var transportErr *remote.TransportError
		if errors.As(err, &transportErr) && transportErr.Err != nil {
			return &NetworkError{Op: op, Detail: transportErr.Err.Error()}
		}
		return &NetworkError{Op: op, Detail: "service unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return &NetworkError{Op: op, Detail: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &NetworkError{Op: op, Detail: "request canceled"}
	case errors.Is(err, flows.ErrProfileMissing):
		return &RemoteError{Op: op, Detail: "No profile found for this account"}
	case errors.Is(err, remote.ErrNoSession):
		return &RemoteError{Op: op, Detail: "Your session has expired, please sign in again"}
	case errors.Is(err, remote.ErrConflict):
		return &RemoteError{Op: op, Detail: "An account with this email already exists"}
	case errors.Is(err, remote.ErrRateLimited):
		return &RemoteError{Op: op, Detail: "Too many attempts, please try again later"}
	case errors.Is(err, remote.ErrNotFound):
		return &RemoteError{Op: op, Detail: "The requested record was not found"}
	case errors.As(err, &statusErr):
		if statusErr.Message != "" {
			return &RemoteError{Op: op, Detail: statusErr.Message}
		}
		return &RemoteError{Op: op, Detail: fmt.Sprintf("request rejected (status %d)", statusErr.Code)}
	default:
		return &RemoteError{Op: op, Detail: messageUnknown}
	}
}
