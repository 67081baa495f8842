package dealAuth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/dealAuth/internal/flows"
)

const (
	opCheckEmail    = "check_email"
	opPasswordReset = "password_reset"
)

// CheckEmailExists reports whether a profile row with exactly this email
// exists. It never changes the authenticated fields. A failed query is
// returned and published as LastError; it is not reported as false.
func (m *Manager) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	if m == nil || m.remote == nil {
		return false, ErrManagerNotReady
	}
	defer m.observeLatency(time.Now())
	m.state.begin()

	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return false, m.reject(err)
	}

	m.metricInc(MetricEmailCheck)
	_, ok, err := m.remote.ProfileByEmail(ctx, email)
	if err != nil {
		mapped := mapRemoteError(opCheckEmail, err)
		m.metricInc(MetricEmailCheckFailure)
		m.logger.WarnContext(ctx, "email existence check failed", "error", err)
		m.emitAudit(ctx, auditRecord{
			eventType: auditEventEmailCheck,
			email:     email,
			err:       mapped,
		})
		m.fail(mapped, false)
		return false, mapped
	}

	m.emitAudit(ctx, auditRecord{
		eventType: auditEventEmailCheck,
		success:   true,
		email:     email,
		metadata: func() map[string]string {
			return map[string]string{"exists": strconv.FormatBool(ok)}
		},
	})
	m.state.finish(nil)
	return ok, nil
}

// ResetPassword asks the remote to mail a reset link and returns
// NoticeResetSent, which is also published as State.Notice. The notice is the
// same whether or not the address is registered, and whether or not the
// request was throttled. Only local validation and failed remote calls are
// errors.
func (m *Manager) ResetPassword(ctx context.Context, email string) (string, error) {
	if m == nil || m.remote == nil {
		return "", ErrManagerNotReady
	}
	defer m.observeLatency(time.Now())
	m.state.begin()

	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return "", m.reject(err)
	}

	res := flows.RunPasswordReset(ctx, email, m.flows.Reset)
	if res.LimiterErr != nil {
		m.logger.WarnContext(ctx, "password reset throttle unavailable", "error", res.LimiterErr)
	}
	if res.Err != nil {
		err := mapRemoteError(opPasswordReset, res.Err)
		m.emitAudit(ctx, auditRecord{
			eventType: auditEventPasswordReset,
			email:     email,
			err:       err,
		})
		m.fail(err, false)
		return "", err
	}

	if res.Throttled {
		m.metricInc(MetricPasswordResetThrottled)
		m.logger.DebugContext(ctx, "password reset request throttled")
	} else {
		m.metricInc(MetricPasswordResetRequest)
	}
	m.emitAudit(ctx, auditRecord{
		eventType: auditEventPasswordReset,
		success:   true,
		email:     email,
		metadata: func() map[string]string {
			return map[string]string{
				"throttled":    strconv.FormatBool(res.Throttled),
				"unregistered": strconv.FormatBool(res.Unregistered),
			}
		},
	})
	m.state.finish(func(st *State) { st.Notice = NoticeResetSent })
	return NoticeResetSent, nil
}
