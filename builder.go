package dealAuth

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/dealAuth/internal/audit"
	"github.com/MrEthical07/dealAuth/internal/flows"
	"github.com/MrEthical07/dealAuth/internal/limiters"
	internalmetrics "github.com/MrEthical07/dealAuth/internal/metrics"
	"github.com/MrEthical07/dealAuth/remote"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Manager. A Builder can be used for one Build call.
type Builder struct {
	config Config
	remote remote.Service
	redis  redis.UniversalClient
	logger *slog.Logger
	now    func() time.Time

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRemote sets the auth/profile service. Required.
func (b *Builder) WithRemote(svc remote.Service) *Builder {
	b.remote = svc
	return b
}

// WithRedis sets the client backing the password reset throttle. Required
// only when PasswordReset.ThrottleEnabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go and turns auditing on.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used for profile creation timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a Manager in the
// unauthenticated state. Call Manager.Restore next.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.remote == nil {
		return nil, errors.New("remote service required")
	}
	if cfg.PasswordReset.ThrottleEnabled && b.redis == nil {
		return nil, errors.New("PasswordReset throttle requires redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	deps := flows.NewDeps(b.remote)
	deps.SignUp.Now = now
	if cfg.PasswordReset.ThrottleEnabled {
		deps.Reset.Limiter = limiters.NewPasswordResetLimiter(b.redis, limiters.PasswordResetConfig{
			MaxAttempts: cfg.PasswordReset.MaxRequests,
			Cooldown:    cfg.PasswordReset.Cooldown,
		})
	}

	sink := b.auditSink
	if sink == nil {
		sink = NoOpSink{}
	}

	m := &Manager{
		config: cfg,
		remote: b.remote,
		flows:  deps,
		state:  newStateStore(),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:     cfg.Audit.Enabled,
			BufferSize:  cfg.Audit.BufferSize,
			DropIfFull:  cfg.Audit.DropIfFull,
			EmitTimeout: cfg.Audit.EmitTimeout,
		}, sink),
		metrics: internalmetrics.New(internalmetrics.Config{
			Enabled:                 cfg.Metrics.Enabled,
			EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
		}),
		logger: logger,
		now:    now,
	}

	b.built = true

	return m, nil
}
