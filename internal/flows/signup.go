package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/dealAuth/remote"
)

// SignUpDeps captures sign-up flow dependencies.
type SignUpDeps struct {
	Remote remote.Service
	Now    func() time.Time
}

type SignUpResult struct {
	Credential remote.Credential
	Profile    remote.Profile
	// VerificationRequired is set when the remote created the credential
	// without issuing a session.
	VerificationRequired bool
	// Partial is set when the credential exists but the profile row does not.
	Partial bool
	Stage   Stage
	Err     error
	// CleanupErr is the failure of signing out a session issued before the
	// profile insert failed.
	CleanupErr error
}

// RunSignUp creates the remote credential and then its profile row.
func RunSignUp(ctx context.Context, email, password, role string, deps SignUpDeps) SignUpResult {
	cred, err := deps.Remote.SignUp(ctx, email, password)
	if err != nil {
		return SignUpResult{Stage: StageCredentials, Err: err}
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	profile := remote.Profile{
		ID:        cred.UserID,
		Email:     email,
		Role:      role,
		CreatedAt: now().UTC(),
	}

	if err := deps.Remote.InsertProfile(ctx, profile); err != nil {
		res := SignUpResult{
			Credential: cred,
			Profile:    profile,
			Partial:    true,
			Stage:      StageProfile,
			Err:        err,
		}
		if cred.HasSession() {
			res.CleanupErr = deps.Remote.SignOut(ctx)
		}
		return res
	}

	return SignUpResult{
		Credential:           cred,
		Profile:              profile,
		VerificationRequired: !cred.HasSession(),
	}
}
