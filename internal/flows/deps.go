package flows

import (
	"errors"

	"github.com/MrEthical07/dealAuth/remote"
)

// Deps groups flow dependency sets. The Manager builds this once and
// delegates each operation to the matching flow.
type Deps struct {
	Restore RestoreDeps
	SignIn  SignInDeps
	SignUp  SignUpDeps
	Reset   ResetDeps
}

// NewDeps wires every flow against the same remote service.
func NewDeps(svc remote.Service) Deps {
	return Deps{
		Restore: RestoreDeps{Remote: svc},
		SignIn:  SignInDeps{Remote: svc},
		SignUp:  SignUpDeps{Remote: svc},
		Reset:   ResetDeps{Remote: svc},
	}
}

// Stage names the step a sequence stopped at.
type Stage uint8

const (
	StageNone Stage = iota
	StageSession
	StageCredentials
	StageProfile
	StageRoleCheck
)

func (s Stage) String() string {
	switch s {
	case StageSession:
		return "session"
	case StageCredentials:
		return "credentials"
	case StageProfile:
		return "profile"
	case StageRoleCheck:
		return "role_check"
	default:
		return "none"
	}
}

var (
	// ErrProfileMissing is returned when an authenticated user has no profile row.
	ErrProfileMissing = errors.New("profile row missing")
	// ErrRoleMismatch is returned when the stored role differs from the requested one.
	ErrRoleMismatch = errors.New("profile role mismatch")
)
