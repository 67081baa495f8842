package flows

import (
	"context"

	"github.com/MrEthical07/dealAuth/remote"
)

// SignInDeps captures sign-in flow dependencies.
type SignInDeps struct {
	Remote remote.Service
}

type SignInResult struct {
	Credential remote.Credential
	Profile    remote.Profile
	Stage      Stage
	Err        error
	// Compensated is set when the just-created remote session was signed
	// out again; CompensationErr holds that call's failure, if any.
	Compensated     bool
	CompensationErr error
}

// RunSignIn authenticates, fetches the profile row for the returned user id
// and compares its role with expectedRole.
//
// Once the credentials are accepted, every later failure signs the remote
// session out before returning, so no wrong-role or profile-less session is
// left alive.
func RunSignIn(ctx context.Context, email, password, expectedRole string, deps SignInDeps) SignInResult {
	cred, err := deps.Remote.SignIn(ctx, email, password)
	if err != nil {
		return SignInResult{Stage: StageCredentials, Err: err}
	}

	profile, ok, err := deps.Remote.ProfileByID(ctx, cred.UserID)
	if err == nil && !ok {
		err = ErrProfileMissing
	}
	if err != nil {
		return compensate(ctx, deps.Remote, SignInResult{
			Credential: cred,
			Stage:      StageProfile,
			Err:        err,
		})
	}

	if profile.Role != expectedRole {
		return compensate(ctx, deps.Remote, SignInResult{
			Credential: cred,
			Profile:    profile,
			Stage:      StageRoleCheck,
			Err:        ErrRoleMismatch,
		})
	}

	return SignInResult{Credential: cred, Profile: profile}
}

func compensate(ctx context.Context, svc remote.Service, res SignInResult) SignInResult {
	res.Compensated = true
	res.CompensationErr = svc.SignOut(ctx)
	return res
}
