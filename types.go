package dealAuth

import (
	"context"
	"fmt"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/dealAuth/internal/audit"
	internalmetrics "github.com/MrEthical07/dealAuth/internal/metrics"
	"github.com/MrEthical07/dealAuth/remote"
)

// Role selects which application surface a user is routed to.
// The zero value is RoleCustomer.
type Role uint8

const (
	RoleCustomer Role = iota
	RolePartner
)

// String returns the wire form stored in profile rows.
func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return remote.RoleCustomer
	case RolePartner:
		return remote.RolePartner
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func (r Role) valid() bool {
	return r == RoleCustomer || r == RolePartner
}

// ParseRole parses the wire form of a role.
func ParseRole(s string) (Role, error) {
	switch s {
	case remote.RoleCustomer:
		return RoleCustomer, nil
	case remote.RolePartner:
		return RolePartner, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// Provider names a social sign-in provider.
type Provider string

const (
	ProviderGoogle Provider = "Google"
	ProviderApple  Provider = "Apple"
)

// User is the cached copy of the active user's profile row.
type User struct {
	ID    string
	Email string
	Role  Role
	// CreatedAt is zero when the row carries no timestamp.
	CreatedAt time.Time
}

// State is a snapshot of the session. Snapshots are values; mutating one
// never affects the Manager.
type State struct {
	Authenticated bool
	Role          Role
	CurrentUser   *User
	Loading       bool
	// LastError is nil or a taxonomy error; see KindOf and Message.
	LastError error
	// Notice is an informational message such as a verification prompt.
	Notice  string
	Version uint64
}

func (s State) clone() State {
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		s.CurrentUser = &u
	}
	return s
}

// ErrorMessage returns Message(s.LastError).
func (s State) ErrorMessage() string {
	return Message(s.LastError)
}

// SignUpResult describes a successful sign-up.
type SignUpResult struct {
	User User
	// VerificationRequired is set when the account must be confirmed by
	// email before a session is issued. The session stays unauthenticated.
	VerificationRequired bool
	Notice               string
}

const (
	NoticeVerifyEmail = "Please check your email to verify your account"
	NoticeResetSent   = "Password reset email sent"
)

// AuditEvent is one audited Manager operation.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel, dropping when full.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc = internalaudit.FuncSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes events to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

var _ AuditSink = AuditSinkFunc(func(context.Context, AuditEvent) {})

// MetricID identifies a counter or histogram in a MetricsSnapshot.
type MetricID = internalmetrics.MetricID

const (
	MetricRestoreSuccess             = MetricID(internalmetrics.MetricRestoreSuccess)
	MetricRestoreFailure             = MetricID(internalmetrics.MetricRestoreFailure)
	MetricEmailCheck                 = MetricID(internalmetrics.MetricEmailCheck)
	MetricEmailCheckFailure          = MetricID(internalmetrics.MetricEmailCheckFailure)
	MetricSignInSuccess              = MetricID(internalmetrics.MetricSignInSuccess)
	MetricSignInFailure              = MetricID(internalmetrics.MetricSignInFailure)
	MetricSignInRoleMismatch         = MetricID(internalmetrics.MetricSignInRoleMismatch)
	MetricSignUpSuccess              = MetricID(internalmetrics.MetricSignUpSuccess)
	MetricSignUpVerificationRequired = MetricID(internalmetrics.MetricSignUpVerificationRequired)
	MetricSignUpFailure              = MetricID(internalmetrics.MetricSignUpFailure)
	MetricSignUpPartial              = MetricID(internalmetrics.MetricSignUpPartial)
	MetricSignOut                    = MetricID(internalmetrics.MetricSignOut)
	MetricSignOutRemoteFailure       = MetricID(internalmetrics.MetricSignOutRemoteFailure)
	MetricPasswordResetRequest       = MetricID(internalmetrics.MetricPasswordResetRequest)
	MetricPasswordResetThrottled     = MetricID(internalmetrics.MetricPasswordResetThrottled)
	MetricProfileReload              = MetricID(internalmetrics.MetricProfileReload)
	MetricProfileMissing             = MetricID(internalmetrics.MetricProfileMissing)
	MetricValidationRejected         = MetricID(internalmetrics.MetricValidationRejected)
	MetricProviderNotImplemented     = MetricID(internalmetrics.MetricProviderNotImplemented)
	MetricOperationLatency           = MetricID(internalmetrics.MetricOperationLatency)
)

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot
