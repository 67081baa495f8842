package remote

import (
	"context"
	"time"
)

// Wire names of the two roles.
const (
	RoleCustomer = "customer"
	RolePartner  = "partner"
)

// Credential is what the credential endpoints return. SessionToken is empty
// when sign-up requires email verification before a session exists.
type Credential struct {
	UserID       string
	Email        string
	SessionToken string
	ExpiresAt    time.Time
}

// HasSession reports whether the credential carries an active session.
func (c Credential) HasSession() bool {
	return c.SessionToken != ""
}

// Service is the remote auth/profile backend.
type Service interface {
	SignIn(ctx context.Context, email, password string) (Credential, error)
	SignUp(ctx context.Context, email, password string) (Credential, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (Credential, error)
	SendPasswordReset(ctx context.Context, email string) error

	InsertProfile(ctx context.Context, p Profile) error
	ProfileByID(ctx context.Context, id string) (Profile, bool, error)
	ProfileByEmail(ctx context.Context, email string) (Profile, bool, error)
}
