package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/dealAuth/internal"
	"github.com/MrEthical07/dealAuth/internal/limiters"
	"github.com/MrEthical07/dealAuth/internal/stores"
	"github.com/MrEthical07/dealAuth/jwt"
	"github.com/MrEthical07/dealAuth/password"
	"github.com/MrEthical07/dealAuth/remote"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service implements the auth and profile operations of the backend.
type Service struct {
	config        Config
	credentials   *stores.CredentialStore
	profiles      *stores.ProfileStore
	resets        *stores.OneTimeStore
	verifications *stores.OneTimeStore
	revocations   *stores.RevocationStore
	limiter       *limiters.SignInLimiter
	hasher        *password.Argon2
	tokens        *jwt.Manager
	mailer        Mailer
	logger        *slog.Logger
	now           func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

func WithMailer(m Mailer) Option {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wires a Service on top of rdb.
func New(rdb redis.UniversalClient, cfg Config, opts ...Option) (*Service, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	tokens, err := jwt.NewManager(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("token config: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "db"
	}

	s := &Service{
		config:        cfg,
		credentials:   stores.NewCredentialStore(rdb, prefix+"c"),
		profiles:      stores.NewProfileStore(rdb, prefix+"p"),
		resets:        stores.NewOneTimeStore(rdb, prefix+"r"),
		verifications: stores.NewOneTimeStore(rdb, prefix+"v"),
		revocations:   stores.NewRevocationStore(rdb, prefix+"x"),
		limiter: limiters.NewSignInLimiter(rdb, limiters.SignInConfig{
			EnableIPThrottle: cfg.SignInIPThrottle,
			MaxAttempts:      cfg.SignInMaxAttempts,
			Cooldown:         cfg.SignInCooldown,
		}),
		hasher: hasher,
		tokens: tokens,
		mailer: LogMailer{},
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if lm, ok := s.mailer.(LogMailer); ok && lm.Logger == nil {
		s.mailer = LogMailer{Logger: s.logger}
	}
	return s, nil
}

// SignUp registers email. With RequireEmailVerification the returned
// credential has no session and a verification email is sent instead.
func (s *Service) SignUp(ctx context.Context, email, pass string) (remote.Credential, error) {
	email, err := normalizeAddress(email)
	if err != nil {
		return remote.Credential{}, err
	}
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return remote.Credential{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return remote.Credential{}, err
	}

	record := &stores.CredentialRecord{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Verified:     !s.config.RequireEmailVerification,
		CreatedAt:    s.now().Unix(),
	}
	if err := s.credentials.Create(ctx, record); err != nil {
		if errors.Is(err, stores.ErrCredentialExists) {
			return remote.Credential{}, ErrEmailTaken
		}
		return remote.Credential{}, err
	}

	if s.config.RequireEmailVerification {
		if err := s.sendVerification(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "verification email failed", "user_id", record.UserID, "error", err)
			_ = s.credentials.Delete(ctx, email)
			return remote.Credential{}, err
		}
		s.logger.InfoContext(ctx, "sign-up pending verification", "user_id", record.UserID)
		return remote.Credential{UserID: record.UserID, Email: email}, nil
	}

	s.logger.InfoContext(ctx, "sign-up", "user_id", record.UserID)
	return s.issue(record.UserID, email)
}

// SignIn checks email and password. ip feeds the optional per-IP throttle.
func (s *Service) SignIn(ctx context.Context, email, pass, ip string) (remote.Credential, error) {
	email, err := normalizeAddress(email)
	if err != nil {
		return remote.Credential{}, ErrInvalidCredentials
	}

	if err := s.limiter.Check(ctx, email, ip); err != nil {
		return remote.Credential{}, s.mapLimiter(err)
	}

	record, err := s.credentials.Get(ctx, email)
	if err != nil && !errors.Is(err, stores.ErrCredentialNotFound) {
		return remote.Credential{}, err
	}

	ok := false
	if record != nil {
		ok, err = s.hasher.Verify(pass, record.PasswordHash)
		if err != nil {
			return remote.Credential{}, err
		}
	}
	if !ok {
		if err := s.limiter.RecordFailure(ctx, email, ip); err != nil && !errors.Is(err, limiters.ErrSignInRateLimited) {
			s.logger.WarnContext(ctx, "sign-in limiter unavailable", "error", err)
		}
		return remote.Credential{}, ErrInvalidCredentials
	}
	if !record.Verified {
		return remote.Credential{}, ErrEmailNotVerified
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "sign-in limiter reset failed", "error", err)
	}
	s.maybeRehash(ctx, email, pass, record.PasswordHash)

	return s.issue(record.UserID, email)
}

// Session verifies token and its revocation status.
func (s *Service) Session(ctx context.Context, token string) (remote.Credential, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return remote.Credential{}, ErrInvalidSession
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.SID)
	if err != nil {
		return remote.Credential{}, err
	}
	if revoked {
		return remote.Credential{}, ErrInvalidSession
	}
	return remote.Credential{
		UserID:       claims.UserID(),
		Email:        claims.Email,
		SessionToken: token,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// SignOut revokes the session behind token until it would have expired.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return ErrInvalidSession
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.revocations.Revoke(ctx, claims.SID, ttl); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "sign-out", "user_id", claims.UserID())
	return nil
}

// RequestPasswordReset mails a reset token. Unknown addresses fail with
// ErrNotFound; callers decide whether to reveal that.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeAddress(email)
	if err != nil {
		return err
	}
	record, err := s.credentials.Get(ctx, email)
	if err != nil {
		if errors.Is(err, stores.ErrCredentialNotFound) {
			return ErrNotFound
		}
		return err
	}

	token, digest, err := internal.NewResetToken()
	if err != nil {
		return err
	}
	if err := s.resets.Save(ctx, digest, &stores.OneTimeRecord{UserID: record.UserID, Email: email}, s.config.ResetTTL); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, email, token); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset requested", "user_id", record.UserID)
	return nil
}

// ConfirmPasswordReset consumes token and replaces the password hash.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	digest, err := internal.HashResetToken(token)
	if err != nil {
		return ErrInvalidToken
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return err
	}

	record, err := s.resets.Consume(ctx, digest)
	if err != nil {
		if errors.Is(err, stores.ErrOneTimeNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	err = s.credentials.Update(ctx, record.Email, func(c *stores.CredentialRecord) error {
		c.PasswordHash = hash
		// completing a reset proves control of the mailbox
		c.Verified = true
		return nil
	})
	if errors.Is(err, stores.ErrCredentialNotFound) {
		return ErrInvalidToken
	}
	return err
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	digest, err := internal.HashResetToken(token)
	if err != nil {
		return ErrInvalidToken
	}
	record, err := s.verifications.Consume(ctx, digest)
	if err != nil {
		if errors.Is(err, stores.ErrOneTimeNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	err = s.credentials.Update(ctx, record.Email, func(c *stores.CredentialRecord) error {
		c.Verified = true
		return nil
	})
	if errors.Is(err, stores.ErrCredentialNotFound) {
		return ErrInvalidToken
	}
	return err
}

func (s *Service) InsertProfile(ctx context.Context, p remote.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	email, err := checkAddress(p.Email)
	if err != nil {
		return err
	}
	if p.Role != remote.RoleCustomer && p.Role != remote.RolePartner {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, p.Role)
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = s.now().UTC()
	}

	err = s.profiles.Insert(ctx, &stores.ProfileRecord{
		ID:        p.ID,
		Email:     email,
		Role:      p.Role,
		CreatedAt: created.UTC(),
	})
	if errors.Is(err, stores.ErrProfileExists) {
		return ErrProfileExists
	}
	return err
}

func (s *Service) ProfileByID(ctx context.Context, id string) (remote.Profile, bool, error) {
	record, err := s.profiles.ByID(ctx, id)
	return toProfile(record, err)
}

func (s *Service) ProfileByEmail(ctx context.Context, email string) (remote.Profile, bool, error) {
	record, err := s.profiles.ByEmail(ctx, email)
	return toProfile(record, err)
}

func toProfile(record *stores.ProfileRecord, err error) (remote.Profile, bool, error) {
	if err != nil {
		if errors.Is(err, stores.ErrProfileNotFound) {
			return remote.Profile{}, false, nil
		}
		return remote.Profile{}, false, err
	}
	return remote.Profile{
		ID:        record.ID,
		Email:     record.Email,
		Role:      record.Role,
		CreatedAt: record.CreatedAt,
	}, true, nil
}

func (s *Service) issue(userID, email string) (remote.Credential, error) {
	token, exp, err := s.tokens.Issue(userID, uuid.NewString(), email)
	if err != nil {
		return remote.Credential{}, err
	}
	return remote.Credential{
		UserID:       userID,
		Email:        email,
		SessionToken: token,
		ExpiresAt:    exp,
	}, nil
}

func (s *Service) sendVerification(ctx context.Context, record *stores.CredentialRecord) error {
	token, digest, err := internal.NewResetToken()
	if err != nil {
		return err
	}
	if err := s.verifications.Save(ctx, digest, &stores.OneTimeRecord{UserID: record.UserID, Email: record.Email}, s.config.VerificationTTL); err != nil {
		return err
	}
	return s.mailer.SendVerification(ctx, record.Email, token)
}

func (s *Service) maybeRehash(ctx context.Context, email, pass, current string) {
	stale, err := s.hasher.NeedsRehash(current)
	if err != nil || !stale {
		return
	}
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return
	}
	err = s.credentials.Update(ctx, email, func(c *stores.CredentialRecord) error {
		c.PasswordHash = hash
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "error", err)
	}
}

func (s *Service) mapLimiter(err error) error {
	if errors.Is(err, limiters.ErrSignInRateLimited) {
		return ErrRateLimited
	}
	return err
}

// normalizeAddress lowercases email for credential keys.
func normalizeAddress(email string) (string, error) {
	return checkAddress(internal.NormalizeEmail(email))
}

// checkAddress validates email without changing its case. Profile rows keep
// the address exactly as the client sent it.
func checkAddress(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	return email, nil
}
