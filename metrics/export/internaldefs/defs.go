package internaldefs

import (
	"github.com/MrEthical07/dealAuth"
)

// CounterDef names one Manager counter for exporters. Operation and Outcome
// are the attribute pair used by exporters that group counters.
type CounterDef struct {
	ID        dealAuth.MetricID
	Name      string
	Help      string
	Operation string
	Outcome   string
}

// HistogramDef names one Manager latency histogram for exporters.
type HistogramDef struct {
	ID   dealAuth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: dealAuth.MetricRestoreSuccess, Name: "dealauth_restore_success_total", Help: "Session restores that found a valid session.", Operation: "restore", Outcome: "success"},
	{ID: dealAuth.MetricRestoreFailure, Name: "dealauth_restore_failure_total", Help: "Session restores that ended unauthenticated.", Operation: "restore", Outcome: "failure"},
	{ID: dealAuth.MetricEmailCheck, Name: "dealauth_email_check_total", Help: "Email existence checks sent to the remote.", Operation: "email_check", Outcome: "request"},
	{ID: dealAuth.MetricEmailCheckFailure, Name: "dealauth_email_check_failure_total", Help: "Email existence checks that failed.", Operation: "email_check", Outcome: "failure"},
	{ID: dealAuth.MetricSignInSuccess, Name: "dealauth_signin_success_total", Help: "Successful sign-ins.", Operation: "signin", Outcome: "success"},
	{ID: dealAuth.MetricSignInFailure, Name: "dealauth_signin_failure_total", Help: "Failed sign-ins other than role mismatches.", Operation: "signin", Outcome: "failure"},
	{ID: dealAuth.MetricSignInRoleMismatch, Name: "dealauth_signin_role_mismatch_total", Help: "Sign-ins rejected because the profile role differed.", Operation: "signin", Outcome: "role_mismatch"},
	{ID: dealAuth.MetricSignUpSuccess, Name: "dealauth_signup_success_total", Help: "Sign-ups that started a session.", Operation: "signup", Outcome: "success"},
	{ID: dealAuth.MetricSignUpVerificationRequired, Name: "dealauth_signup_verification_required_total", Help: "Sign-ups waiting for email verification.", Operation: "signup", Outcome: "verification_required"},
	{ID: dealAuth.MetricSignUpFailure, Name: "dealauth_signup_failure_total", Help: "Failed sign-ups.", Operation: "signup", Outcome: "failure"},
	{ID: dealAuth.MetricSignUpPartial, Name: "dealauth_signup_partial_total", Help: "Sign-ups that created a credential but no profile row.", Operation: "signup", Outcome: "partial"},
	{ID: dealAuth.MetricSignOut, Name: "dealauth_signout_total", Help: "Sign-outs.", Operation: "signout", Outcome: "request"},
	{ID: dealAuth.MetricSignOutRemoteFailure, Name: "dealauth_signout_remote_failure_total", Help: "Sign-outs whose remote call failed.", Operation: "signout", Outcome: "remote_failure"},
	{ID: dealAuth.MetricPasswordResetRequest, Name: "dealauth_password_reset_request_total", Help: "Password reset requests sent to the remote.", Operation: "password_reset", Outcome: "request"},
	{ID: dealAuth.MetricPasswordResetThrottled, Name: "dealauth_password_reset_throttled_total", Help: "Password reset requests absorbed by the throttle.", Operation: "password_reset", Outcome: "throttled"},
	{ID: dealAuth.MetricProfileReload, Name: "dealauth_profile_reload_total", Help: "Profile reloads.", Operation: "profile_reload", Outcome: "request"},
	{ID: dealAuth.MetricProfileMissing, Name: "dealauth_profile_missing_total", Help: "Profile reloads that found no row.", Operation: "profile_reload", Outcome: "missing"},
	{ID: dealAuth.MetricValidationRejected, Name: "dealauth_validation_rejected_total", Help: "Operations rejected by local validation.", Operation: "validation", Outcome: "rejected"},
	{ID: dealAuth.MetricProviderNotImplemented, Name: "dealauth_provider_not_implemented_total", Help: "Social sign-in attempts.", Operation: "provider_signin", Outcome: "not_implemented"},
}

var HistogramDefs = []HistogramDef{
	{ID: dealAuth.MetricOperationLatency, Name: "dealauth_operation_latency_seconds", Help: "Manager operation latency."},
}

// HistogramBounds are the bucket upper bounds in seconds. The final +Inf
// bucket is implicit.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

const bucketCount = 8

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [bucketCount]uint64 {
	var out [bucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [bucketCount]uint64) [bucketCount]uint64 {
	var out [bucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
