package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/dealAuth/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalMatchesRemoteSemantics(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	l := NewLocal(svc, nil)
	ctx := context.Background()

	_, err := l.CurrentSession(ctx)
	assert.ErrorIs(t, err, remote.ErrNoSession)
	assert.NoError(t, l.SignOut(ctx), "sign-out without a session is a no-op")

	cred, err := l.SignUp(ctx, "local@user.com", "secret1")
	require.NoError(t, err)

	_, err = l.SignUp(ctx, "local@user.com", "secret1")
	assert.ErrorIs(t, err, remote.ErrConflict)

	current, err := l.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred.UserID, current.UserID)

	require.NoError(t, l.SignOut(ctx))
	_, err = l.CurrentSession(ctx)
	assert.ErrorIs(t, err, remote.ErrNoSession)

	_, err = l.SignIn(ctx, "local@user.com", "bad-pass")
	assert.ErrorIs(t, err, remote.ErrInvalidCredentials)
	assert.ErrorIs(t, l.SendPasswordReset(ctx, "ghost@user.com"), remote.ErrNotFound)

	err = l.InsertProfile(ctx, remote.Profile{ID: "x", Email: "bad", Role: remote.RoleCustomer})
	var statusErr *remote.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 400, statusErr.Code)
	assert.ErrorIs(t, err, remote.ErrRejected)
}

func TestToRemoteWrapsUnexpectedErrors(t *testing.T) {
	boom := errors.New("boom")
	err := toRemote("op", boom)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, toRemote("op", nil))
}
