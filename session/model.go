package session

import "time"

// Token is the locally persisted half of a remote session.
type Token struct {
	UserID      string
	AccessToken string

	CreatedAt int64
	// ExpiresAt is unix seconds; zero means the issuer did not say.
	ExpiresAt int64
}

// Expired reports whether the token carries an expiry that lies before now.
func (t *Token) Expired(now time.Time) bool {
	return t != nil && t.ExpiresAt > 0 && now.Unix() >= t.ExpiresAt
}

// TTL returns the remaining lifetime, or 0 when the token never expires.
func (t *Token) TTL(now time.Time) time.Duration {
	if t == nil || t.ExpiresAt == 0 {
		return 0
	}
	return time.Unix(t.ExpiresAt, 0).Sub(now)
}
