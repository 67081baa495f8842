package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledNoIncrement(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSignInSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("expected empty snapshot when disabled")
	}
}

func TestConcurrentIncrementSafe(t *testing.T) {
	m := New(Config{Enabled: true})

	const goroutines = 16
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricSignOut)
			}
		}()
	}
	wg.Wait()

	if got, want := m.Value(MetricSignOut), uint64(goroutines*perG); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestHistogramBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricOperationLatency, d)
	}
	// counters are not histograms
	m.Observe(MetricSignInSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricOperationLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d: expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Histograms[MetricSignInSuccess]; ok {
		t.Fatal("unexpected histogram for a counter metric")
	}
	if _, ok := snap.Counters[MetricOperationLatency]; ok {
		t.Fatal("latency metric must not appear among counters")
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSignUpPartial)
	m.Observe(MetricOperationLatency, time.Second)
	if m.Value(MetricSignUpPartial) != 0 || m.Enabled() {
		t.Fatal("nil metrics must be inert")
	}
}
