package dealAuth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/dealAuth/internal/flows"
	"github.com/MrEthical07/dealAuth/remote"
)

var errUnknownRole = &RemoteError{Op: "profile", Detail: "Profile has an unknown role"}

const (
	opRestore       = "restore"
	opSignIn        = "signin"
	opSignUp        = "signup"
	opSignOut       = "signout"
	opReloadProfile = "reload_profile"
)

// Restore reads any persisted remote session and, when its profile row is
// found, commits it. Every failure resets the session silently: LastError
// stays nil and the returned error is nil. The returned State is the final
// snapshot.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	if m == nil || m.remote == nil {
		return State{}, ErrManagerNotReady
	}
	defer m.observeLatency(time.Now())
	m.state.begin()

	res := flows.RunRestore(ctx, m.flows.Restore)
	user, err := restoredUser(res)
	if err != nil {
		m.metricInc(MetricRestoreFailure)
		if !res.NoSession() {
			m.logger.DebugContext(ctx, "session restore failed",
				"stage", res.Stage.String(),
				"error", err,
			)
		}
		if res.StaleSignOutErr != nil {
			m.logger.WarnContext(ctx, "stale session sign-out failed", "error", res.StaleSignOutErr)
		}
		m.emitAudit(ctx, auditRecord{
			eventType: auditEventRestore,
			userID:    res.Credential.UserID,
			err:       mapRemoteError(opRestore, err),
			metadata: func() map[string]string {
				return map[string]string{"stage": res.Stage.String()}
			},
		})
		return m.state.finish(resetSession), nil
	}

	m.metricInc(MetricRestoreSuccess)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventRestore,
		success:   true,
		userID:    user.ID,
		email:     user.Email,
		role:      user.Role.String(),
	})
	return m.state.finish(func(st *State) { commitSession(st, user) }), nil
}

func restoredUser(res flows.RestoreResult) (User, error) {
	if res.Err != nil {
		return User{}, res.Err
	}
	return userFromProfile(res.Profile)
}

// SignIn authenticates and checks that the stored profile role equals
// expected. On a mismatch the new remote session is signed out before the
// *RoleMismatchError is returned, and the local session is left
// unauthenticated.
func (m *Manager) SignIn(ctx context.Context, email, password string, expected Role) (User, error) {
	if m == nil || m.remote == nil {
		return User{}, ErrManagerNotReady
	}
	defer m.observeLatency(time.Now())
	m.state.begin()

	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return User{}, m.reject(err)
	}
	if password == "" {
		return User{}, m.reject(ErrInvalidCredentials)
	}
	if !expected.valid() {
		return User{}, m.reject(&RemoteError{Op: opSignIn, Detail: "Unknown account type"})
	}

	res := flows.RunSignIn(ctx, email, password, expected.String(), m.flows.SignIn)
	if res.Err != nil {
		err := m.signInError(res, expected)
		if res.CompensationErr != nil {
			m.logger.WarnContext(ctx, "sign-in compensation sign-out failed",
				"user_id", res.Credential.UserID,
				"stage", res.Stage.String(),
				"error", res.CompensationErr,
			)
		}

		event := auditEventSignInFailure
		if errors.Is(err, ErrRoleMismatch) {
			event = auditEventSignInRoleMismatch
			m.metricInc(MetricSignInRoleMismatch)
		} else {
			m.metricInc(MetricSignInFailure)
		}
		m.emitAudit(ctx, auditRecord{
			eventType: event,
			userID:    res.Credential.UserID,
			email:     email,
			role:      expected.String(),
			err:       err,
			metadata: func() map[string]string {
				return map[string]string{
					"stage":       res.Stage.String(),
					"compensated": strconv.FormatBool(res.Compensated),
				}
			},
		})

		// A session created by the remote and signed out again replaced
		// whatever the local session was.
		m.fail(err, res.Compensated)
		return User{}, err
	}

	user, err := userFromProfile(res.Profile)
	if err != nil {
		remErr := mapRemoteError(opSignIn, err)
		m.metricInc(MetricSignInFailure)
		m.fail(remErr, false)
		return User{}, remErr
	}

	m.metricInc(MetricSignInSuccess)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventSignInSuccess,
		success:   true,
		userID:    user.ID,
		email:     user.Email,
		role:      user.Role.String(),
	})
	m.state.finish(func(st *State) { commitSession(st, user) })
	return user, nil
}

func (m *Manager) signInError(res flows.SignInResult, expected Role) error {
	if errors.Is(res.Err, flows.ErrRoleMismatch) {
		actual, err := ParseRole(res.Profile.Role)
		if err != nil {
			return errUnknownRole
		}
		return &RoleMismatchError{Expected: expected, Actual: actual}
	}
	return mapRemoteError(opSignIn, res.Err)
}

// SignUp validates email and password locally, creates the remote credential
// and then the profile row with role.
//
// When the remote issues a session immediately the local session is
// committed. When it requires email verification the session stays
// unauthenticated and NoticeVerifyEmail is published. If the profile row
// cannot be created after the credential was, the error is a *RemoteError
// with Partial set.
func (m *Manager) SignUp(ctx context.Context, email, password string, role Role) (SignUpResult, error) {
	if m == nil || m.remote == nil {
		return SignUpResult{}, ErrManagerNotReady
	}
	defer m.observeLatency(time.Now())
	m.state.begin()

	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return SignUpResult{}, m.reject(err)
	}
	if err := ValidatePassword(password); err != nil {
		return SignUpResult{}, m.reject(err)
	}
	if !role.valid() {
		return SignUpResult{}, m.reject(&RemoteError{Op: opSignUp, Detail: "Unknown account type"})
	}

	res := flows.RunSignUp(ctx, email, password, role.String(), m.flows.SignUp)
	if res.Err != nil {
		if res.Partial {
			return SignUpResult{}, m.signUpPartial(ctx, res, email, role)
		}
		err := mapRemoteError(opSignUp, res.Err)
		m.metricInc(MetricSignUpFailure)
		m.emitAudit(ctx, auditRecord{
			eventType: auditEventSignUpFailure,
			email:     email,
			role:      role.String(),
			err:       err,
		})
		m.fail(err, false)
		return SignUpResult{}, err
	}

	user := User{
		ID:        res.Credential.UserID,
		Email:     email,
		Role:      role,
		CreatedAt: res.Profile.CreatedAt,
	}

	if res.VerificationRequired {
		m.metricInc(MetricSignUpVerificationRequired)
		m.emitAudit(ctx, auditRecord{
			eventType: auditEventSignUpPending,
			success:   true,
			userID:    user.ID,
			email:     email,
			role:      role.String(),
		})
		m.state.finish(func(st *State) {
			resetSession(st)
			st.Notice = NoticeVerifyEmail
		})
		return SignUpResult{User: user, VerificationRequired: true, Notice: NoticeVerifyEmail}, nil
	}

	m.metricInc(MetricSignUpSuccess)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventSignUpSuccess,
		success:   true,
		userID:    user.ID,
		email:     email,
		role:      role.String(),
	})
	m.state.finish(func(st *State) { commitSession(st, user) })
	return SignUpResult{User: user}, nil
}

func (m *Manager) signUpPartial(ctx context.Context, res flows.SignUpResult, email string, role Role) error {
	cause := mapRemoteError(opSignUp, res.Err)
	err := &RemoteError{
		Op:      opSignUp,
		Detail:  "Your account was created but its profile could not be saved: " + Message(cause),
		Partial: true,
	}

	m.logger.ErrorContext(ctx, "sign-up left credential without profile row",
		"user_id", res.Credential.UserID,
		"email", email,
		"role", role.String(),
		"error", res.Err,
	)
	if res.CleanupErr != nil {
		m.logger.WarnContext(ctx, "partial sign-up session cleanup failed",
			"user_id", res.Credential.UserID,
			"error", res.CleanupErr,
		)
	}
	m.metricInc(MetricSignUpPartial)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventSignUpPartial,
		partial:   true,
		userID:    res.Credential.UserID,
		email:     email,
		role:      role.String(),
		err:       err,
	})

	m.fail(err, res.Credential.HasSession())
	return err
}

// SignOut signs out at the remote best-effort and always resets the local
// session. A remote failure is logged and audited; SignOut itself returns
// nil unless the Manager is not ready.
func (m *Manager) SignOut(ctx context.Context) error {
	if m == nil || m.remote == nil {
		return ErrManagerNotReady
	}
	defer m.observeLatency(time.Now())
	prev := m.state.begin()

	var userID string
	if prev.CurrentUser != nil {
		userID = prev.CurrentUser.ID
	}

	err := m.remote.SignOut(ctx)
	if err != nil {
		m.metricInc(MetricSignOutRemoteFailure)
		m.logger.WarnContext(ctx, "remote sign-out failed", "user_id", userID, "error", err)
	}
	m.metricInc(MetricSignOut)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventSignOut,
		success:   err == nil,
		userID:    userID,
		err:       mapRemoteError(opSignOut, err),
	})

	m.state.finish(resetSession)
	return nil
}

// ReloadProfile re-fetches the active user's profile row. A missing row
// fails with ErrUserNotFound and tears the session down, as does a row
// whose role no longer matches the session.
func (m *Manager) ReloadProfile(ctx context.Context) (User, error) {
	if m == nil || m.remote == nil {
		return User{}, ErrManagerNotReady
	}
	defer m.observeLatency(time.Now())
	prev := m.state.begin()

	if prev.CurrentUser == nil {
		m.fail(ErrUserNotFound, false)
		return User{}, ErrUserNotFound
	}
	current := *prev.CurrentUser

	m.metricInc(MetricProfileReload)
	profile, ok, err := m.remote.ProfileByID(ctx, current.ID)
	if err != nil {
		mapped := mapRemoteError(opReloadProfile, err)
		m.fail(mapped, false)
		return User{}, mapped
	}

	var failure error
	user, parseErr := userFromProfile(profile)
	switch {
	case !ok:
		m.metricInc(MetricProfileMissing)
		failure = ErrUserNotFound
	case parseErr != nil:
		failure = mapRemoteError(opReloadProfile, parseErr)
	case user.Role != current.Role:
		failure = &RoleMismatchError{Expected: current.Role, Actual: user.Role}
	}

	if failure != nil {
		if err := m.remote.SignOut(ctx); err != nil {
			m.logger.WarnContext(ctx, "sign-out after profile reload failed", "user_id", current.ID, "error", err)
		}
		m.emitAudit(ctx, auditRecord{
			eventType: auditEventProfileReload,
			userID:    current.ID,
			email:     current.Email,
			role:      current.Role.String(),
			err:       failure,
		})
		m.fail(failure, true)
		return User{}, failure
	}

	m.emitAudit(ctx, auditRecord{
		eventType: auditEventProfileReload,
		success:   true,
		userID:    user.ID,
		email:     user.Email,
		role:      user.Role.String(),
	})
	m.state.finish(func(st *State) { commitSession(st, user) })
	return user, nil
}

// SignInWithProvider is the social sign-in entry point. Neither provider is
// implemented; it always fails with a *ProviderError.
func (m *Manager) SignInWithProvider(ctx context.Context, provider Provider, role Role) error {
	if m == nil || m.state == nil {
		return ErrManagerNotReady
	}
	m.state.begin()

	err := &ProviderError{Provider: provider}
	m.metricInc(MetricProviderNotImplemented)
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventProviderSignIn,
		role:      role.String(),
		err:       err,
		metadata: func() map[string]string {
			return map[string]string{"provider": string(provider)}
		},
	})
	m.fail(err, false)
	return err
}

func userFromProfile(p remote.Profile) (User, error) {
	role, err := ParseRole(p.Role)
	if err != nil {
		return User{}, errUnknownRole
	}
	return User{
		ID:        p.ID,
		Email:     p.Email,
		Role:      role,
		CreatedAt: p.CreatedAt,
	}, nil
}
