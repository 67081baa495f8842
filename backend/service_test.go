package backend

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/dealAuth/remote"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil, testConfig())
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := testConfig()
	cfg.Token.PrivateKey = nil
	_, err = New(rdb, cfg)
	assert.Error(t, err)
}

func TestSignUpSignInSession(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	cred, err := svc.SignUp(ctx, "New@User.com", "secret1")
	require.NoError(t, err)
	assert.True(t, cred.HasSession())
	assert.Equal(t, "new@user.com", cred.Email)

	_, err = svc.SignUp(ctx, "new@user.com", "secret1")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.SignUp(ctx, "short@user.com", "12345")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.SignUp(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	signed, err := svc.SignIn(ctx, "new@user.com", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, cred.UserID, signed.UserID)

	sess, err := svc.Session(ctx, signed.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, cred.UserID, sess.UserID)

	require.NoError(t, svc.SignOut(ctx, signed.SessionToken))
	_, err = svc.Session(ctx, signed.SessionToken)
	assert.ErrorIs(t, err, ErrInvalidSession)

	// the sign-up session is independent of the signed-out one
	_, err = svc.Session(ctx, cred.SessionToken)
	assert.NoError(t, err)
}

func TestSignInFailuresAreThrottled(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "bad@user.com", "rightpass")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.SignIn(ctx, "bad@user.com", "wrongpass", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = svc.SignIn(ctx, "bad@user.com", "rightpass", "")
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = svc.SignIn(ctx, "ghost@user.com", "whatever", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerificationRequired(t *testing.T) {
	svc, mailer, _ := newTestService(t, func(c *Config) { c.RequireEmailVerification = true })
	ctx := context.Background()

	cred, err := svc.SignUp(ctx, "v@user.com", "secret1")
	require.NoError(t, err)
	assert.False(t, cred.HasSession())

	_, err = svc.SignIn(ctx, "v@user.com", "secret1", "")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	mail, ok := mailer.Last(MailVerification, "v@user.com")
	require.True(t, ok)
	assert.ErrorIs(t, svc.VerifyEmail(ctx, "bogus"), ErrInvalidToken)
	require.NoError(t, svc.VerifyEmail(ctx, mail.Token))
	assert.ErrorIs(t, svc.VerifyEmail(ctx, mail.Token), ErrInvalidToken, "tokens are single use")

	_, err = svc.SignIn(ctx, "v@user.com", "secret1", "")
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, mailer, mr := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "r@user.com", "oldpass")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.RequestPasswordReset(ctx, "nobody@user.com"), ErrNotFound)
	require.NoError(t, svc.RequestPasswordReset(ctx, "r@user.com"))

	mail, ok := mailer.Last(MailPasswordReset, "r@user.com")
	require.True(t, ok)

	assert.ErrorIs(t, svc.ConfirmPasswordReset(ctx, mail.Token, "123"), ErrInvalidInput)
	require.NoError(t, svc.ConfirmPasswordReset(ctx, mail.Token, "newpass"))

	_, err = svc.SignIn(ctx, "r@user.com", "oldpass", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "r@user.com", "newpass", "")
	assert.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "r@user.com"))
	mail, _ = mailer.Last(MailPasswordReset, "r@user.com")
	mr.FastForward(time.Hour)
	assert.ErrorIs(t, svc.ConfirmPasswordReset(ctx, mail.Token, "another"), ErrInvalidToken)
}

func TestProfiles(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	_, ok, err := svc.ProfileByEmail(ctx, "p@user.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.InsertProfile(ctx, remote.Profile{ID: "u-1", Email: "p@user.com", Role: remote.RolePartner}))
	assert.ErrorIs(t, svc.InsertProfile(ctx, remote.Profile{ID: "u-1", Email: "p@user.com", Role: remote.RolePartner}), ErrProfileExists)
	assert.ErrorIs(t, svc.InsertProfile(ctx, remote.Profile{ID: "u-2", Email: "q@user.com", Role: "admin"}), ErrInvalidInput)

	p, ok, err := svc.ProfileByID(ctx, "u-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, remote.RolePartner, p.Role)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestProfileEmailQueryIsExact(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.InsertProfile(ctx, remote.Profile{ID: "u-1", Email: "new@user.com", Role: remote.RoleCustomer}))
	require.NoError(t, svc.InsertProfile(ctx, remote.Profile{ID: "u-2", Email: "Mixed@User.com", Role: remote.RolePartner}))

	_, ok, err := svc.ProfileByEmail(ctx, "NEW@User.com")
	require.NoError(t, err)
	assert.False(t, ok)

	p, ok, err := svc.ProfileByEmail(ctx, "new@user.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u-1", p.ID)

	p, ok, err = svc.ProfileByEmail(ctx, "Mixed@User.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Mixed@User.com", p.Email, "stored form is kept")

	_, ok, err = svc.ProfileByEmail(ctx, "mixed@user.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
