package remote

import "time"

// Request and response bodies shared by Client and the reference backend.

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

type CredentialResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token,omitempty"`
	// ExpiresAt is unix seconds, zero when AccessToken is empty.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Credential converts the wire form.
func (r CredentialResponse) Credential() Credential {
	c := Credential{
		UserID:       r.UserID,
		Email:        r.Email,
		SessionToken: r.AccessToken,
	}
	if r.ExpiresAt > 0 {
		c.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	}
	return c
}

// NewCredentialResponse converts to the wire form.
func NewCredentialResponse(c Credential) CredentialResponse {
	r := CredentialResponse{
		UserID:      c.UserID,
		Email:       c.Email,
		AccessToken: c.SessionToken,
	}
	if !c.ExpiresAt.IsZero() {
		r.ExpiresAt = c.ExpiresAt.Unix()
	}
	return r
}
