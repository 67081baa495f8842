package dealAuth

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if cfg.PasswordReset.ThrottleEnabled {
		t.Fatal("throttle should be off by default")
	}
	if cfg.Audit.Enabled {
		t.Fatal("audit should be off by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name: "throttle without requests",
			mutate: func(c *Config) {
				c.PasswordReset.ThrottleEnabled = true
				c.PasswordReset.MaxRequests = 0
			},
			want: "MaxRequests",
		},
		{
			name: "throttle without cooldown",
			mutate: func(c *Config) {
				c.PasswordReset.ThrottleEnabled = true
				c.PasswordReset.Cooldown = 0
			},
			want: "Cooldown",
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			want: "BufferSize",
		},
		{
			name:   "negative emit timeout",
			mutate: func(c *Config) { c.Audit.EmitTimeout = -time.Second },
			want:   "EmitTimeout",
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			want: "EnableLatencyHistograms",
		},
		{
			name:   "zero subscription buffer",
			mutate: func(c *Config) { c.Subscription.DefaultBuffer = 0 },
			want:   "DefaultBuffer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subscription.DefaultBuffer = -1
	if _, err := New().WithConfig(cfg).WithRemote(newFakeRemote()).Build(); err == nil {
		t.Fatal("expected invalid config to fail Build")
	}
}
