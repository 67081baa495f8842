package dealAuth

import (
	"errors"
	"time"
)

// Config controls the Manager's ambient behavior. Session semantics are
// fixed; everything here is throttling and observability.
type Config struct {
	PasswordReset PasswordResetConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Subscription  SubscriptionConfig
}

// PasswordResetConfig configures the optional per-email reset throttle.
// When a request is throttled the remote call is skipped and the caller
// sees the usual notice.
type PasswordResetConfig struct {
	ThrottleEnabled bool
	MaxRequests     int
	Cooldown        time.Duration
}

type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	EmitTimeout time.Duration
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SubscriptionConfig sets the channel buffer used when Subscribe is called
// with a non-positive size.
type SubscriptionConfig struct {
	DefaultBuffer int
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return Config{
		PasswordReset: PasswordResetConfig{
			ThrottleEnabled: false,
			MaxRequests:     3,
			Cooldown:        15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Subscription: SubscriptionConfig{
			DefaultBuffer: 8,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cfg for values the Manager cannot run with.
func (c *Config) Validate() error {
	if c.PasswordReset.ThrottleEnabled {
		if c.PasswordReset.MaxRequests <= 0 {
			return errors.New("PasswordReset MaxRequests must be > 0")
		}
		if c.PasswordReset.Cooldown <= 0 {
			return errors.New("PasswordReset Cooldown must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	if c.Audit.EmitTimeout < 0 {
		return errors.New("Audit EmitTimeout must be >= 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	if c.Subscription.DefaultBuffer <= 0 {
		return errors.New("Subscription DefaultBuffer must be > 0")
	}

	return nil
}
