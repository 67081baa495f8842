package dealAuth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/dealAuth/remote"
)

// fakeRemote is an in-memory remote.Service that counts every call.
type fakeRemote struct {
	mu sync.Mutex

	accounts map[string]fakeAccount
	profiles map[string]remote.Profile
	session  *remote.Credential

	requireVerification bool

	signInErr  error
	signOutErr error
	sessionErr error
	resetErr   error
	insertErr  error
	profileErr error

	// onCall runs before every method with the method name, outside mu.
	onCall func(name string)

	calls map[string]int
	seq   int
}

type fakeAccount struct {
	id       string
	password string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		accounts: map[string]fakeAccount{},
		profiles: map[string]remote.Profile{},
		calls:    map[string]int{},
	}
}

func (f *fakeRemote) addUser(email, password string, role Role) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := "user-" + strconv.Itoa(f.seq)
	f.accounts[email] = fakeAccount{id: id, password: password}
	f.profiles[id] = remote.Profile{ID: id, Email: email, Role: role.String()}
	return id
}

func (f *fakeRemote) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRemote) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRemote) hasSession() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session != nil
}

func (f *fakeRemote) record(name string) {
	if f.onCall != nil {
		f.onCall(name)
	}
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeRemote) SignIn(_ context.Context, email, password string) (remote.Credential, error) {
	f.record("signin")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return remote.Credential{}, f.signInErr
	}
	acct, ok := f.accounts[email]
	if !ok || acct.password != password {
		return remote.Credential{}, remote.ErrInvalidCredentials
	}
	cred := remote.Credential{UserID: acct.id, Email: email, SessionToken: "tok-" + acct.id, ExpiresAt: time.Now().Add(time.Hour)}
	f.session = &cred
	return cred, nil
}

func (f *fakeRemote) SignUp(_ context.Context, email, password string) (remote.Credential, error) {
	f.record("signup")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return remote.Credential{}, remote.ErrConflict
	}
	f.seq++
	id := "user-" + strconv.Itoa(f.seq)
	f.accounts[email] = fakeAccount{id: id, password: password}
	cred := remote.Credential{UserID: id, Email: email}
	if !f.requireVerification {
		cred.SessionToken = "tok-" + id
		cred.ExpiresAt = time.Now().Add(time.Hour)
		f.session = &cred
	}
	return cred, nil
}

func (f *fakeRemote) SignOut(context.Context) error {
	f.record("signout")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return f.signOutErr
}

func (f *fakeRemote) CurrentSession(context.Context) (remote.Credential, error) {
	f.record("session")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return remote.Credential{}, f.sessionErr
	}
	if f.session == nil {
		return remote.Credential{}, remote.ErrNoSession
	}
	return *f.session, nil
}

func (f *fakeRemote) SendPasswordReset(_ context.Context, email string) error {
	f.record("reset")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return f.resetErr
	}
	if _, ok := f.accounts[email]; !ok {
		return remote.ErrNotFound
	}
	return nil
}

func (f *fakeRemote) InsertProfile(_ context.Context, p remote.Profile) error {
	f.record("insert")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.profiles[p.ID]; ok {
		return remote.ErrConflict
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeRemote) ProfileByID(_ context.Context, id string) (remote.Profile, bool, error) {
	f.record("profile_by_id")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return remote.Profile{}, false, f.profileErr
	}
	p, ok := f.profiles[id]
	return p, ok, nil
}

func (f *fakeRemote) ProfileByEmail(_ context.Context, email string) (remote.Profile, bool, error) {
	f.record("profile_by_email")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return remote.Profile{}, false, f.profileErr
	}
	for _, p := range f.profiles {
		if p.Email == email {
			return p, true, nil
		}
	}
	return remote.Profile{}, false, nil
}

var errDial = errors.New("dial tcp: connection refused")

func transportErr(op string) error {
	return &remote.TransportError{Op: op, Err: errDial}
}

func newTestManager(t *testing.T, f *fakeRemote, configure ...func(*Builder)) *Manager {
	t.Helper()
	b := New().WithRemote(f)
	for _, fn := range configure {
		fn(b)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// assertConsistent checks the invariants every snapshot must hold once no
// operation is in flight.
func assertConsistent(t *testing.T, st State) {
	t.Helper()
	if st.Authenticated != (st.CurrentUser != nil) {
		t.Fatalf("authenticated=%v but currentUser=%v", st.Authenticated, st.CurrentUser)
	}
	if st.CurrentUser != nil && st.Role != st.CurrentUser.Role {
		t.Fatalf("role %v differs from current user role %v", st.Role, st.CurrentUser.Role)
	}
	if st.Loading {
		t.Fatal("loading must be false after the operation")
	}
}
