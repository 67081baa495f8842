package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/dealAuth"
	"github.com/MrEthical07/dealAuth/remote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot dealAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() dealAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: dealAuth.MetricsSnapshot{
			Counters: map[dealAuth.MetricID]uint64{
				dealAuth.MetricSignInSuccess:      7,
				dealAuth.MetricSignInRoleMismatch: 2,
			},
			Histograms: map[dealAuth.MetricID][]uint64{},
		},
		dropped: 3,
	})

	expected := `
# HELP dealauth_signin_success_total Successful sign-ins.
# TYPE dealauth_signin_success_total counter
dealauth_signin_success_total 7
# HELP dealauth_signin_role_mismatch_total Sign-ins rejected because the profile role differed.
# TYPE dealauth_signin_role_mismatch_total counter
dealauth_signin_role_mismatch_total 2
# HELP dealauth_audit_dropped_total Audit events dropped due to dispatcher backpressure.
# TYPE dealauth_audit_dropped_total counter
dealauth_audit_dropped_total 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"dealauth_signin_success_total",
		"dealauth_signin_role_mismatch_total",
		"dealauth_audit_dropped_total",
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: dealAuth.MetricsSnapshot{
			Counters: map[dealAuth.MetricID]uint64{},
			Histograms: map[dealAuth.MetricID][]uint64{
				dealAuth.MetricOperationLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	rec := httptest.NewRecorder()
	Handler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`dealauth_operation_latency_seconds_bucket{le="0.005"} 1`,
		`dealauth_operation_latency_seconds_bucket{le="0.5"} 28`,
		`dealauth_operation_latency_seconds_bucket{le="+Inf"} 36`,
		`dealauth_operation_latency_seconds_count 36`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}

func TestCollectorFromManager(t *testing.T) {
	m, err := dealAuth.New().WithRemote(nopRemote{}).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	_ = m.ConfirmPasswords("a", "b")

	expected := `
# HELP dealauth_validation_rejected_total Operations rejected by local validation.
# TYPE dealauth_validation_rejected_total counter
dealauth_validation_rejected_total 1
`
	err = testutil.CollectAndCompare(NewCollector(m), strings.NewReader(expected), "dealauth_validation_rejected_total")
	if err != nil {
		t.Fatal(err)
	}
}

// nopRemote is never called; ConfirmPasswords is local.
type nopRemote struct{}

func (nopRemote) SignIn(context.Context, string, string) (remote.Credential, error) {
	return remote.Credential{}, remote.ErrUnavailable
}
func (nopRemote) SignUp(context.Context, string, string) (remote.Credential, error) {
	return remote.Credential{}, remote.ErrUnavailable
}
func (nopRemote) SignOut(context.Context) error { return nil }
func (nopRemote) CurrentSession(context.Context) (remote.Credential, error) {
	return remote.Credential{}, remote.ErrNoSession
}
func (nopRemote) SendPasswordReset(context.Context, string) error     { return nil }
func (nopRemote) InsertProfile(context.Context, remote.Profile) error { return nil }
func (nopRemote) ProfileByID(context.Context, string) (remote.Profile, bool, error) {
	return remote.Profile{}, false, nil
}
func (nopRemote) ProfileByEmail(context.Context, string) (remote.Profile, bool, error) {
	return remote.Profile{}, false, nil
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: dealAuth.MetricsSnapshot{
			Counters: map[dealAuth.MetricID]uint64{
				dealAuth.MetricSignInSuccess: 1000,
				dealAuth.MetricSignInFailure: 40,
				dealAuth.MetricSignOut:       800,
			},
			Histograms: map[dealAuth.MetricID][]uint64{
				dealAuth.MetricOperationLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch := make(chan prometheus.Metric, 32)
		c.Collect(ch)
		close(ch)
		for range ch {
		}
	}
}
