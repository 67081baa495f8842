package dealAuth

import (
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/dealAuth/internal/audit"
	"github.com/MrEthical07/dealAuth/internal/flows"
	internalmetrics "github.com/MrEthical07/dealAuth/internal/metrics"
	"github.com/MrEthical07/dealAuth/remote"
)

// Manager owns one session and mediates every intent against the remote
// service. Operations run synchronously in the caller's goroutine; use Go to
// run them asynchronously.
//
// Operations may be called concurrently, but callers are expected not to
// overlap intents. The Manager only guarantees that each published snapshot
// is internally consistent.
type Manager struct {
	config  Config
	remote  remote.Service
	flows   flows.Deps
	state   *stateStore
	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// State returns the current snapshot.
func (m *Manager) State() State {
	if m == nil || m.state == nil {
		return State{}
	}
	return m.state.snapshot()
}

// Subscribe registers a snapshot listener. The current snapshot is delivered
// immediately. buffer <= 0 uses Config.Subscription.DefaultBuffer.
func (m *Manager) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = m.config.Subscription.DefaultBuffer
	}
	return m.state.subscribe(buffer)
}

// ClearError drops LastError and Notice, e.g. after the UI shows them.
func (m *Manager) ClearError() {
	m.state.apply(func(st *State) {
		st.LastError = nil
		st.Notice = ""
	})
}

// ConfirmPasswords runs CheckPasswordConfirmation and publishes a mismatch.
// No remote call is made.
func (m *Manager) ConfirmPasswords(password, confirmation string) error {
	err := CheckPasswordConfirmation(password, confirmation)
	if err != nil {
		m.metricInc(MetricValidationRejected)
		m.state.apply(func(st *State) {
			st.LastError = err
			st.Notice = ""
		})
	}
	return err
}

// Close flushes audit events and closes every subscription.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
	if m.state != nil {
		m.state.close()
	}
}

// AuditDropped reports audit events lost to a full buffer.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

func (m *Manager) observeLatency(start time.Time) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Observe(MetricOperationLatency, time.Since(start))
}

// fail closes the loading bracket with err published. reset also tears the
// local session down.
func (m *Manager) fail(err error, reset bool) {
	m.state.finish(func(st *State) {
		if reset {
			resetSession(st)
		}
		st.LastError = err
	})
}

// reject handles local validation failures: no remote call was made.
func (m *Manager) reject(err error) error {
	m.metricInc(MetricValidationRejected)
	m.fail(err, false)
	return err
}
