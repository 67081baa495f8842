package metrics

import (
	"sync/atomic"
	"time"
)

type MetricID uint16

const (
	MetricRestoreSuccess MetricID = iota
	MetricRestoreFailure
	MetricEmailCheck
	MetricEmailCheckFailure
	MetricSignInSuccess
	MetricSignInFailure
	MetricSignInRoleMismatch
	MetricSignUpSuccess
	MetricSignUpVerificationRequired
	MetricSignUpFailure
	MetricSignUpPartial
	MetricSignOut
	MetricSignOutRemoteFailure
	MetricPasswordResetRequest
	MetricPasswordResetThrottled
	MetricProfileReload
	MetricProfileMissing
	MetricValidationRejected
	MetricProviderNotImplemented
	MetricOperationLatency
	MetricIDCount
)

// LatencyMetrics lists the IDs that carry histograms.
var LatencyMetrics = []MetricID{MetricOperationLatency}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// BucketBounds are the upper bounds of the first seven histogram buckets;
// the eighth is +Inf.
var BucketBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type histogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of all counters and histograms.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. IDs outside LatencyMetrics are
// ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !isLatency(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms: make(map[MetricID][]uint64, len(LatencyMetrics)),
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if isLatency(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range LatencyMetrics {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isLatency(id MetricID) bool {
	for _, l := range LatencyMetrics {
		if l == id {
			return true
		}
	}
	return false
}

func bucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
