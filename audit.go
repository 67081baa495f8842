package dealAuth

import (
	"context"
	"time"
)

const (
	auditEventRestore            = "session_restore"
	auditEventEmailCheck         = "email_check"
	auditEventSignInSuccess      = "signin_success"
	auditEventSignInFailure      = "signin_failure"
	auditEventSignInRoleMismatch = "signin_role_mismatch"
	auditEventSignUpSuccess      = "signup_success"
	auditEventSignUpPending      = "signup_verification_required"
	auditEventSignUpFailure      = "signup_failure"
	auditEventSignUpPartial      = "signup_profile_partial"
	auditEventSignOut            = "signout"
	auditEventPasswordReset      = "password_reset_request"
	auditEventProfileReload      = "profile_reload"
	auditEventProviderSignIn     = "provider_signin"
)

type auditRecord struct {
	eventType string
	success   bool
	partial   bool
	userID    string
	email     string
	role      string
	err       error
	metadata  func() map[string]string
}

func (m *Manager) emitAudit(ctx context.Context, rec auditRecord) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if rec.metadata != nil {
		metadata = rec.metadata()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: rec.eventType,
		UserID:    rec.userID,
		Email:     rec.email,
		Role:      rec.role,
		Success:   rec.success,
		Partial:   rec.partial,
		Metadata:  metadata,
	}
	if rec.err != nil {
		event.Error = KindOf(rec.err).String()
	}

	m.audit.Emit(ctx, event)
}
