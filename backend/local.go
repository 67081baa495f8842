package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/dealAuth/remote"
	"github.com/MrEthical07/dealAuth/session"
)

// Local adapts a Service to remote.Service without HTTP, keeping the bearer
// token in a session.Store the way remote.Client does. Errors are mapped to
// the remote sentinels.
type Local struct {
	svc   *Service
	store session.Store
}

var _ remote.Service = (*Local)(nil)

// NewLocal returns an in-process remote.Service. A nil store gets a
// MemoryStore.
func NewLocal(svc *Service, store session.Store) *Local {
	if store == nil {
		store = session.NewMemoryStore()
	}
	return &Local{svc: svc, store: store}
}

func (l *Local) SignIn(ctx context.Context, email, password string) (remote.Credential, error) {
	cred, err := l.svc.SignIn(ctx, email, password, "")
	if err != nil {
		return remote.Credential{}, toRemote("signin", err)
	}
	return cred, l.save(ctx, cred)
}

func (l *Local) SignUp(ctx context.Context, email, password string) (remote.Credential, error) {
	cred, err := l.svc.SignUp(ctx, email, password)
	if err != nil {
		return remote.Credential{}, toRemote("signup", err)
	}
	return cred, l.save(ctx, cred)
}

func (l *Local) SignOut(ctx context.Context) error {
	t, err := l.store.Load(ctx)
	if err != nil {
		return nil
	}
	defer l.store.Clear(ctx)

	err = l.svc.SignOut(ctx, t.AccessToken)
	if err != nil && !errors.Is(err, ErrInvalidSession) {
		return toRemote("signout", err)
	}
	return nil
}

func (l *Local) CurrentSession(ctx context.Context) (remote.Credential, error) {
	t, err := l.store.Load(ctx)
	if err != nil {
		return remote.Credential{}, remote.ErrNoSession
	}
	cred, err := l.svc.Session(ctx, t.AccessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidSession) {
			_ = l.store.Clear(ctx)
			return remote.Credential{}, remote.ErrNoSession
		}
		return remote.Credential{}, toRemote("session", err)
	}
	return cred, nil
}

func (l *Local) SendPasswordReset(ctx context.Context, email string) error {
	return toRemote("password_reset", l.svc.RequestPasswordReset(ctx, email))
}

func (l *Local) InsertProfile(ctx context.Context, p remote.Profile) error {
	return toRemote("insert_profile", l.svc.InsertProfile(ctx, p))
}

func (l *Local) ProfileByID(ctx context.Context, id string) (remote.Profile, bool, error) {
	p, ok, err := l.svc.ProfileByID(ctx, id)
	return p, ok, toRemote("profile_by_id", err)
}

func (l *Local) ProfileByEmail(ctx context.Context, email string) (remote.Profile, bool, error) {
	p, ok, err := l.svc.ProfileByEmail(ctx, email)
	return p, ok, toRemote("profile_by_email", err)
}

func (l *Local) save(ctx context.Context, cred remote.Credential) error {
	if !cred.HasSession() {
		return nil
	}
	return l.store.Save(ctx, &session.Token{
		UserID:      cred.UserID,
		AccessToken: cred.SessionToken,
		CreatedAt:   time.Now().Unix(),
		ExpiresAt:   cred.ExpiresAt.Unix(),
	})
}

// toRemote maps backend errors onto the same classes an HTTP round trip
// through remote.Client would produce.
func toRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	code := statusFor(err)
	switch code {
	case http.StatusUnauthorized:
		if errors.Is(err, ErrInvalidSession) {
			return fmt.Errorf("%s: %w", op, remote.ErrNoSession)
		}
		return fmt.Errorf("%s: %w", op, remote.ErrInvalidCredentials)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, remote.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", op, remote.ErrConflict)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", op, remote.ErrRateLimited)
	case http.StatusInternalServerError:
		return &remote.TransportError{Op: op, Err: err}
	default:
		return &remote.StatusError{Op: op, Code: code, Message: err.Error()}
	}
}
