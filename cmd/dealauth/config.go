package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// cliConfig is the YAML file layout. Environment variables override it.
type cliConfig struct {
	Log     logConfig     `yaml:"log"`
	Remote  remoteConfig  `yaml:"remote"`
	Session sessionConfig `yaml:"session"`
	Redis   redisConfig   `yaml:"redis"`
	Server  serverConfig  `yaml:"server"`
	Manager managerConfig `yaml:"manager"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type remoteConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

type sessionConfig struct {
	// File keeps the bearer token between CLI invocations.
	File string `yaml:"file"`
}

type redisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type serverConfig struct {
	Addr                     string        `yaml:"addr"`
	SigningKey               string        `yaml:"signing_key"`
	RequireEmailVerification bool          `yaml:"require_email_verification"`
	TokenTTL                 time.Duration `yaml:"token_ttl"`
}

type managerConfig struct {
	ResetThrottle    bool          `yaml:"reset_throttle"`
	ResetMaxRequests int           `yaml:"reset_max_requests"`
	ResetCooldown    time.Duration `yaml:"reset_cooldown"`
	AuditLog         bool          `yaml:"audit_log"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Log: logConfig{Level: "info", Format: "text"},
		Remote: remoteConfig{
			BaseURL:  "http://127.0.0.1:8080",
			Timeout:  10 * time.Second,
			RetryMax: 2,
		},
		Session: sessionConfig{File: defaultSessionFile()},
		Server: serverConfig{
			Addr:     ":8080",
			TokenTTL: time.Hour,
		},
		Manager: managerConfig{
			ResetMaxRequests: 3,
			ResetCooldown:    15 * time.Minute,
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".dealauth-session"
	}
	return filepath.Join(dir, "dealauth", "session")
}

// loadConfig reads path (optional) and applies environment overrides read
// through lookup.
func loadConfig(path string, lookup func(string) (string, bool)) (cliConfig, error) {
	cfg := defaultCLIConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cliConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cliConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *cliConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("DEALAUTH_LOG_LEVEL", &cfg.Log.Level)
	str("DEALAUTH_LOG_FORMAT", &cfg.Log.Format)
	str("DEALAUTH_REMOTE_URL", &cfg.Remote.BaseURL)
	str("DEALAUTH_API_KEY", &cfg.Remote.APIKey)
	str("DEALAUTH_SESSION_FILE", &cfg.Session.File)
	str("DEALAUTH_REDIS_ADDR", &cfg.Redis.Addr)
	str("DEALAUTH_REDIS_PASSWORD", &cfg.Redis.Password)
	str("DEALAUTH_SERVER_ADDR", &cfg.Server.Addr)
	str("DEALAUTH_SIGNING_KEY", &cfg.Server.SigningKey)

	if v, ok := lookup("DEALAUTH_REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEALAUTH_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if v, ok := lookup("DEALAUTH_RESET_THROTTLE"); ok && v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEALAUTH_RESET_THROTTLE: %w", err)
		}
		cfg.Manager.ResetThrottle = on
	}
	return nil
}

func (c cliConfig) validateClient() error {
	if c.Remote.BaseURL == "" {
		return errors.New("remote.base_url is required")
	}
	if c.Session.File == "" {
		return errors.New("session.file is required")
	}
	if c.Manager.ResetThrottle && c.Redis.Addr == "" {
		return errors.New("manager.reset_throttle requires redis.addr")
	}
	return nil
}

func newLogger(cfg logConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}
