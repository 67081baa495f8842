package dealAuth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/dealAuth/remote"
)

func TestBuildRequiresRemote(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without remote service")
	}

	b := New().WithRemote(newFakeRemote())
	if _, err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("builder must refuse a second Build")
	}
}

func TestBuildThrottleRequiresRedis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PasswordReset.ThrottleEnabled = true
	if _, err := New().WithRemote(newFakeRemote()).WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected error without redis client")
	}
}

func TestNewManagerStartsUnauthenticated(t *testing.T) {
	m := newTestManager(t, newFakeRemote())
	st := m.State()
	if st.Authenticated || st.CurrentUser != nil || st.Role != RoleCustomer || st.LastError != nil {
		t.Fatalf("unexpected initial state: %+v", st)
	}
}

func TestCheckEmailThenSignUpScenario(t *testing.T) {
	f := newFakeRemote()
	m := newTestManager(t, f)
	ctx := context.Background()

	exists, err := m.CheckEmailExists(ctx, "new@user.com")
	if err != nil || exists {
		t.Fatalf("CheckEmailExists = %v, %v", exists, err)
	}
	if m.State().Authenticated {
		t.Fatal("email check must not authenticate")
	}

	res, err := m.SignUp(ctx, "new@user.com", "secret1", RoleCustomer)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if res.VerificationRequired {
		t.Fatal("fake remote issues sessions immediately")
	}

	st := m.State()
	assertConsistent(t, st)
	if !st.Authenticated || st.Role != RoleCustomer || st.CurrentUser.Email != "new@user.com" {
		t.Fatalf("unexpected state after sign-up: %+v", st)
	}
	if st.CurrentUser.CreatedAt.IsZero() {
		t.Fatal("created_at should be set on sign-up")
	}

	exists, err = m.CheckEmailExists(ctx, "new@user.com")
	if err != nil || !exists {
		t.Fatalf("CheckEmailExists after sign-up = %v, %v", exists, err)
	}
}

func TestSignUpStoresProfileRow(t *testing.T) {
	f := newFakeRemote()
	fixed := time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, f, func(b *Builder) { b.WithClock(func() time.Time { return fixed }) })

	res, err := m.SignUp(context.Background(), "p@deal.com", "secret1", RolePartner)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	row, ok, _ := f.ProfileByID(context.Background(), res.User.ID)
	if !ok {
		t.Fatal("profile row missing")
	}
	if row.Role != remote.RolePartner || row.Email != "p@deal.com" || !row.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected row: %+v", row)
	}
	if st := m.State(); st.Role != RolePartner {
		t.Fatalf("role = %v, want partner", st.Role)
	}
}

func TestSignInInvalidCredentialsScenario(t *testing.T) {
	f := newFakeRemote()
	f.addUser("bad@user.com", "rightpass", RoleCustomer)
	m := newTestManager(t, f)

	_, err := m.SignIn(context.Background(), "bad@user.com", "wrongpass", RoleCustomer)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	st := m.State()
	assertConsistent(t, st)
	if st.Authenticated || !errors.Is(st.LastError, ErrInvalidCredentials) {
		t.Fatalf("unexpected state: %+v", st)
	}
	if f.count("profile_by_id") != 0 {
		t.Fatal("profile must not be fetched after rejected credentials")
	}
}

func TestSignInRoleMismatchCompensates(t *testing.T) {
	f := newFakeRemote()
	f.addUser("cust@user.com", "secret1", RoleCustomer)
	m := newTestManager(t, f)

	_, err := m.SignIn(context.Background(), "cust@user.com", "secret1", RolePartner)
	var mismatch *RoleMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected RoleMismatchError, got %v", err)
	}
	if mismatch.Expected != RolePartner || mismatch.Actual != RoleCustomer {
		t.Fatalf("unexpected mismatch: %+v", mismatch)
	}
	if Message(err) != "This account is not registered as a partner" {
		t.Fatalf("unexpected message %q", Message(err))
	}

	if f.count("signout") != 1 || f.hasSession() {
		t.Fatal("remote session must be signed out after a role mismatch")
	}
	st := m.State()
	assertConsistent(t, st)
	if st.Authenticated || !errors.Is(st.LastError, ErrRoleMismatch) {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestSignInRoleMismatchMessages(t *testing.T) {
	f := newFakeRemote()
	f.addUser("partner@deal.com", "secret1", RolePartner)
	m := newTestManager(t, f)

	_, err := m.SignIn(context.Background(), "partner@deal.com", "secret1", RoleCustomer)
	if got := Message(err); got != "This account is registered as a partner" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestSignInCompensatesBeforeReporting(t *testing.T) {
	f := newFakeRemote()
	f.addUser("cust@user.com", "secret1", RoleCustomer)
	m := newTestManager(t, f)

	var sawSignOutWhileLoading bool
	f.onCall = func(name string) {
		if name == "signout" {
			st := m.State()
			sawSignOutWhileLoading = st.Loading && st.LastError == nil
		}
	}

	if _, err := m.SignIn(context.Background(), "cust@user.com", "secret1", RolePartner); err == nil {
		t.Fatal("expected mismatch")
	}
	if !sawSignOutWhileLoading {
		t.Fatal("compensating sign-out must run before the error is published")
	}
}

func TestSignInSuccess(t *testing.T) {
	f := newFakeRemote()
	id := f.addUser("partner@deal.com", "secret1", RolePartner)
	m := newTestManager(t, f)

	user, err := m.SignIn(context.Background(), "  partner@deal.com ", "secret1", RolePartner)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.ID != id || user.Role != RolePartner {
		t.Fatalf("unexpected user: %+v", user)
	}
	st := m.State()
	assertConsistent(t, st)
	if !st.Authenticated || st.Role != RolePartner {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestSignInMissingProfileIsRemoteError(t *testing.T) {
	f := newFakeRemote()
	id := f.addUser("ghost@user.com", "secret1", RoleCustomer)
	delete(f.profiles, id)
	m := newTestManager(t, f)

	_, err := m.SignIn(context.Background(), "ghost@user.com", "secret1", RoleCustomer)
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if f.hasSession() {
		t.Fatal("profile-less session must be signed out")
	}
	assertConsistent(t, m.State())
}

func TestSignInNetworkError(t *testing.T) {
	f := newFakeRemote()
	f.signInErr = transportErr("signin")
	m := newTestManager(t, f)

	_, err := m.SignIn(context.Background(), "a@b.co", "secret1", RoleCustomer)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if Message(err) != "Network error: "+errDial.Error() {
		t.Fatalf("unexpected message %q", Message(err))
	}
	var transport *remote.TransportError
	if errors.As(m.State().LastError, &transport) {
		t.Fatal("raw transport errors must not reach state")
	}
}

func TestSignInRejectsLocally(t *testing.T) {
	f := newFakeRemote()
	m := newTestManager(t, f)

	if _, err := m.SignIn(context.Background(), "no-at-sign.com", "secret1", RoleCustomer); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := m.SignIn(context.Background(), "a@b.co", "", RoleCustomer); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	_, err := m.SignIn(context.Background(), "a@b.co", "secret1", Role(7))
	if !errors.Is(err, ErrRemote) || errors.Is(err, ErrRoleMismatch) {
		t.Fatalf("expected unknown role rejection, got %v", err)
	}
	if st := m.State(); st.Authenticated || st.Loading || !errors.Is(st.LastError, ErrRemote) {
		t.Fatalf("unexpected state: %+v", st)
	}
	if f.total() != 0 {
		t.Fatalf("local rejections must not reach the remote, got %d calls", f.total())
	}
}

func TestSignUpVerificationRequired(t *testing.T) {
	f := newFakeRemote()
	f.requireVerification = true
	m := newTestManager(t, f)

	res, err := m.SignUp(context.Background(), "v@user.com", "secret1", RoleCustomer)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if !res.VerificationRequired || res.Notice != NoticeVerifyEmail {
		t.Fatalf("unexpected result: %+v", res)
	}
	st := m.State()
	assertConsistent(t, st)
	if st.Authenticated || st.LastError != nil || st.Notice != NoticeVerifyEmail {
		t.Fatalf("unexpected state: %+v", st)
	}
	if f.count("insert") != 1 {
		t.Fatal("profile row must be created before verification")
	}
}

func TestSignUpPartialFailure(t *testing.T) {
	f := newFakeRemote()
	f.insertErr = &remote.StatusError{Op: "insert_profile", Code: 400, Message: "bad row"}
	sink := NewChannelSink(16)
	m := newTestManager(t, f, func(b *Builder) { b.WithAuditSink(sink) })

	_, err := m.SignUp(context.Background(), "p@user.com", "secret1", RoleCustomer)
	var remErr *RemoteError
	if !errors.As(err, &remErr) || !remErr.Partial {
		t.Fatalf("expected partial RemoteError, got %v", err)
	}
	if f.hasSession() {
		t.Fatal("session issued before the failed insert must be signed out")
	}
	st := m.State()
	assertConsistent(t, st)
	if st.Authenticated {
		t.Fatal("partial sign-up must stay unauthenticated")
	}
	if got := m.MetricsSnapshot().Counters[MetricSignUpPartial]; got != 1 {
		t.Fatalf("partial counter = %d", got)
	}

	m.Close()
	found := false
	for ev := range drain(sink) {
		if ev.EventType == auditEventSignUpPartial && ev.Partial && !ev.Success {
			found = true
		}
	}
	if !found {
		t.Fatal("expected signup_profile_partial audit event")
	}
}

func TestSignUpFirstCallFailureIsNotPartial(t *testing.T) {
	f := newFakeRemote()
	f.addUser("dup@user.com", "secret1", RoleCustomer)
	m := newTestManager(t, f)

	_, err := m.SignUp(context.Background(), "dup@user.com", "secret1", RoleCustomer)
	var remErr *RemoteError
	if !errors.As(err, &remErr) || remErr.Partial {
		t.Fatalf("expected non-partial RemoteError, got %v", err)
	}
	if f.count("insert") != 0 {
		t.Fatal("no profile insert after credential failure")
	}
}

func TestSignOutAlwaysResets(t *testing.T) {
	f := newFakeRemote()
	f.addUser("a@b.co", "secret1", RoleCustomer)
	m := newTestManager(t, f)
	ctx := context.Background()

	if _, err := m.SignIn(ctx, "a@b.co", "secret1", RoleCustomer); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	f.signOutErr = transportErr("signout")
	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("SignOut must swallow remote failures, got %v", err)
	}
	st := m.State()
	assertConsistent(t, st)
	if st.Authenticated || st.CurrentUser != nil || st.Role != RoleCustomer || st.LastError != nil {
		t.Fatalf("unexpected state after sign-out: %+v", st)
	}
	if got := m.MetricsSnapshot().Counters[MetricSignOutRemoteFailure]; got != 1 {
		t.Fatalf("remote failure counter = %d", got)
	}
}

func TestResetPasswordSameNotice(t *testing.T) {
	f := newFakeRemote()
	f.addUser("known@user.com", "secret1", RoleCustomer)
	m := newTestManager(t, f)
	ctx := context.Background()

	var notices []string
	for _, email := range []string{"x@y.com", "x@y.com", "known@user.com"} {
		notice, err := m.ResetPassword(ctx, email)
		if err != nil {
			t.Fatalf("ResetPassword(%q): %v", email, err)
		}
		notices = append(notices, notice)
		if st := m.State(); st.Notice != NoticeResetSent || st.LastError != nil {
			t.Fatalf("unexpected state: %+v", st)
		}
	}
	for _, n := range notices {
		if n != NoticeResetSent {
			t.Fatalf("notices differ: %v", notices)
		}
	}
}

func TestResetPasswordNetworkError(t *testing.T) {
	f := newFakeRemote()
	f.resetErr = transportErr("password_reset")
	m := newTestManager(t, f)

	if _, err := m.ResetPassword(context.Background(), "x@y.com"); !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if _, err := m.ResetPassword(context.Background(), "bad-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestCheckEmailExistsFailureIsPublished(t *testing.T) {
	f := newFakeRemote()
	f.addUser("a@b.co", "secret1", RoleCustomer)
	m := newTestManager(t, f)
	ctx := context.Background()

	if _, err := m.SignIn(ctx, "a@b.co", "secret1", RoleCustomer); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	f.profileErr = transportErr("profile_by_email")

	exists, err := m.CheckEmailExists(ctx, "other@b.co")
	if exists || !errors.Is(err, ErrNetwork) {
		t.Fatalf("CheckEmailExists = %v, %v", exists, err)
	}
	st := m.State()
	if !errors.Is(st.LastError, ErrNetwork) {
		t.Fatalf("failure must be published, got %v", st.LastError)
	}
	if !st.Authenticated {
		t.Fatal("email check must not touch the session")
	}
}

func TestRestore(t *testing.T) {
	t.Run("no session is silent", func(t *testing.T) {
		f := newFakeRemote()
		m := newTestManager(t, f)
		st, err := m.Restore(context.Background())
		if err != nil || st.Authenticated || st.LastError != nil {
			t.Fatalf("Restore = %+v, %v", st, err)
		}
	})

	t.Run("valid session commits", func(t *testing.T) {
		f := newFakeRemote()
		f.addUser("p@deal.com", "secret1", RolePartner)
		if _, err := f.SignIn(context.Background(), "p@deal.com", "secret1"); err != nil {
			t.Fatal(err)
		}
		m := newTestManager(t, f)
		st, err := m.Restore(context.Background())
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		assertConsistent(t, st)
		if !st.Authenticated || st.Role != RolePartner {
			t.Fatalf("unexpected state: %+v", st)
		}
	})

	t.Run("network failure is silent and keeps remote session", func(t *testing.T) {
		f := newFakeRemote()
		f.addUser("a@b.co", "secret1", RoleCustomer)
		if _, err := f.SignIn(context.Background(), "a@b.co", "secret1"); err != nil {
			t.Fatal(err)
		}
		f.profileErr = transportErr("profile_by_id")
		m := newTestManager(t, f)

		st, err := m.Restore(context.Background())
		if err != nil || st.Authenticated || st.LastError != nil {
			t.Fatalf("Restore = %+v, %v", st, err)
		}
		if !f.hasSession() {
			t.Fatal("transient failures must not sign the remote session out")
		}
	})

	t.Run("missing profile signs out", func(t *testing.T) {
		f := newFakeRemote()
		id := f.addUser("a@b.co", "secret1", RoleCustomer)
		if _, err := f.SignIn(context.Background(), "a@b.co", "secret1"); err != nil {
			t.Fatal(err)
		}
		delete(f.profiles, id)
		m := newTestManager(t, f)

		st, err := m.Restore(context.Background())
		if err != nil || st.Authenticated || st.LastError != nil {
			t.Fatalf("Restore = %+v, %v", st, err)
		}
		if f.hasSession() {
			t.Fatal("stale session should be signed out")
		}
	})
}

func TestReloadProfile(t *testing.T) {
	f := newFakeRemote()
	id := f.addUser("a@b.co", "secret1", RoleCustomer)
	m := newTestManager(t, f)
	ctx := context.Background()

	if _, err := m.ReloadProfile(ctx); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound without a session, got %v", err)
	}

	if _, err := m.SignIn(ctx, "a@b.co", "secret1", RoleCustomer); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	f.mu.Lock()
	p := f.profiles[id]
	p.Email = "renamed@b.co"
	f.profiles[id] = p
	f.mu.Unlock()

	user, err := m.ReloadProfile(ctx)
	if err != nil || user.Email != "renamed@b.co" {
		t.Fatalf("ReloadProfile = %+v, %v", user, err)
	}
	if m.State().CurrentUser.Email != "renamed@b.co" {
		t.Fatal("reloaded profile must be committed")
	}

	f.mu.Lock()
	delete(f.profiles, id)
	f.mu.Unlock()
	if _, err := m.ReloadProfile(ctx); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	st := m.State()
	assertConsistent(t, st)
	if st.Authenticated {
		t.Fatal("session must be torn down when the row disappears")
	}
}

func TestReloadProfileRoleChangeIsMismatch(t *testing.T) {
	f := newFakeRemote()
	id := f.addUser("a@b.co", "secret1", RoleCustomer)
	m := newTestManager(t, f)
	ctx := context.Background()

	if _, err := m.SignIn(ctx, "a@b.co", "secret1", RoleCustomer); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	f.mu.Lock()
	p := f.profiles[id]
	p.Role = remote.RolePartner
	f.profiles[id] = p
	f.mu.Unlock()

	if _, err := m.ReloadProfile(ctx); !errors.Is(err, ErrRoleMismatch) {
		t.Fatalf("expected role mismatch, got %v", err)
	}
	if m.State().Authenticated {
		t.Fatal("role change must not be applied silently")
	}
}

func TestSignInWithProvider(t *testing.T) {
	f := newFakeRemote()
	m := newTestManager(t, f)

	err := m.SignInWithProvider(context.Background(), ProviderGoogle, RoleCustomer)
	if !errors.Is(err, ErrProviderNotImplemented) {
		t.Fatalf("expected ErrProviderNotImplemented, got %v", err)
	}
	if got := m.State().ErrorMessage(); got != "Google Sign In will be implemented soon" {
		t.Fatalf("unexpected message %q", got)
	}
	err = m.SignInWithProvider(context.Background(), ProviderApple, RolePartner)
	if got := Message(err); got != "Apple Sign In will be implemented soon" {
		t.Fatalf("unexpected message %q", got)
	}
	if f.total() != 0 {
		t.Fatal("provider stubs must not call the remote")
	}
	assertConsistent(t, m.State())
}

func TestConfirmPasswordsAndClearError(t *testing.T) {
	m := newTestManager(t, newFakeRemote())

	if err := m.ConfirmPasswords("secret1", "secret2"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if !errors.Is(m.State().LastError, ErrPasswordMismatch) {
		t.Fatal("mismatch must be published")
	}
	m.ClearError()
	if st := m.State(); st.LastError != nil || st.Notice != "" {
		t.Fatalf("ClearError left %+v", st)
	}
	if err := m.ConfirmPasswords("secret1", "secret1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadingBracketsRemoteCalls(t *testing.T) {
	f := newFakeRemote()
	f.addUser("a@b.co", "secret1", RoleCustomer)
	m := newTestManager(t, f)

	var sawNotLoading bool
	f.onCall = func(string) {
		if !m.State().Loading {
			sawNotLoading = true
		}
	}

	ctx := context.Background()
	_, _ = m.Restore(ctx)
	_, _ = m.CheckEmailExists(ctx, "a@b.co")
	_, _ = m.SignIn(ctx, "a@b.co", "secret1", RolePartner)
	_, _ = m.SignIn(ctx, "a@b.co", "secret1", RoleCustomer)
	_, _ = m.SignUp(ctx, "n@b.co", "secret1", RoleCustomer)
	_, _ = m.ResetPassword(ctx, "a@b.co")
	_ = m.SignOut(ctx)

	if sawNotLoading {
		t.Fatal("loading must be true while a remote call is in flight")
	}
	assertConsistent(t, m.State())
}

func TestMetricsAndLatency(t *testing.T) {
	f := newFakeRemote()
	f.addUser("a@b.co", "secret1", RoleCustomer)
	m := newTestManager(t, f, func(b *Builder) { b.WithLatencyHistograms(true) })

	ctx := context.Background()
	_, _ = m.SignIn(ctx, "a@b.co", "secret1", RoleCustomer)
	_, _ = m.SignIn(ctx, "a@b.co", "nope-nope", RoleCustomer)
	_, _ = m.SignUp(ctx, "bad", "secret1", RoleCustomer)

	snap := m.MetricsSnapshot()
	if snap.Counters[MetricSignInSuccess] != 1 || snap.Counters[MetricSignInFailure] != 1 {
		t.Fatalf("unexpected counters: %v", snap.Counters)
	}
	if snap.Counters[MetricValidationRejected] != 1 {
		t.Fatalf("validation counter = %d", snap.Counters[MetricValidationRejected])
	}
	var total uint64
	for _, c := range snap.Histograms[MetricOperationLatency] {
		total += c
	}
	if total != 3 {
		t.Fatalf("latency observations = %d, want 3", total)
	}
}

func drain(sink *ChannelSink) <-chan AuditEvent {
	out := make(chan AuditEvent, 64)
	go func() {
		defer close(out)
		for {
			select {
			case ev := <-sink.Events():
				out <- ev
			case <-time.After(50 * time.Millisecond):
				return
			}
		}
	}()
	return out
}
