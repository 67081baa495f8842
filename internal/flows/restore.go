package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/dealAuth/remote"
)

// RestoreDeps captures restore flow dependencies.
type RestoreDeps struct {
	Remote remote.Service
}

type RestoreResult struct {
	Credential remote.Credential
	Profile    remote.Profile
	Stage      Stage
	Err        error
	// StaleSignOutErr is the error from signing out a session whose profile
	// row is gone.
	StaleSignOutErr error
}

// NoSession reports whether the sequence stopped because nothing was stored.
func (r RestoreResult) NoSession() bool {
	return r.Stage == StageSession && errors.Is(r.Err, remote.ErrNoSession)
}

// RunRestore reads the current remote session and its profile row.
//
// A transport failure while fetching the row leaves the remote session alone
// so a later restore can retry. A missing row means the session can never
// succeed, so it is signed out.
func RunRestore(ctx context.Context, deps RestoreDeps) RestoreResult {
	cred, err := deps.Remote.CurrentSession(ctx)
	if err != nil {
		return RestoreResult{Stage: StageSession, Err: err}
	}

	profile, ok, err := deps.Remote.ProfileByID(ctx, cred.UserID)
	if err != nil {
		return RestoreResult{Credential: cred, Stage: StageProfile, Err: err}
	}
	if !ok {
		return RestoreResult{
			Credential:      cred,
			Stage:           StageProfile,
			Err:             ErrProfileMissing,
			StaleSignOutErr: deps.Remote.SignOut(ctx),
		}
	}

	return RestoreResult{Credential: cred, Profile: profile}
}
