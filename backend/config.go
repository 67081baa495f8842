package backend

import (
	"errors"
	"time"

	"github.com/MrEthical07/dealAuth/jwt"
	"github.com/MrEthical07/dealAuth/password"
)

// Config configures a Service.
type Config struct {
	// APIKey is required in the apikey header of every request when set.
	APIKey string
	// RequireEmailVerification makes sign-up return no session until the
	// verification link is used.
	RequireEmailVerification bool

	Token    jwt.Config
	Password password.Config

	SignInMaxAttempts int
	SignInCooldown    time.Duration
	SignInIPThrottle  bool

	ResetTTL        time.Duration
	VerificationTTL time.Duration

	// KeyPrefix namespaces every Redis key.
	KeyPrefix string
}

// DefaultConfig returns production-leaning defaults. Token.PrivateKey must
// still be supplied.
func DefaultConfig() Config {
	return Config{
		Token: jwt.Config{
			TTL:           time.Hour,
			SigningMethod: jwt.MethodHS256,
			Issuer:        "dealauth",
			Leeway:        30 * time.Second,
		},
		Password:          password.DefaultConfig(),
		SignInMaxAttempts: 5,
		SignInCooldown:    15 * time.Minute,
		ResetTTL:          30 * time.Minute,
		VerificationTTL:   24 * time.Hour,
		KeyPrefix:         "db",
	}
}

// Validate checks the fields jwt and password do not validate themselves.
func (c Config) Validate() error {
	if c.SignInMaxAttempts <= 0 {
		return errors.New("sign-in max attempts must be > 0")
	}
	if c.SignInCooldown <= 0 {
		return errors.New("sign-in cooldown must be > 0")
	}
	if c.ResetTTL <= 0 || c.VerificationTTL <= 0 {
		return errors.New("reset and verification ttl must be > 0")
	}
	return nil
}
