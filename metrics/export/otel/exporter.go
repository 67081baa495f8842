package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/dealAuth"
	"github.com/MrEthical07/dealAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Instrument names.
const (
	OperationsName    = "dealauth.operations"
	LatencyBucketName = "dealauth.operation.duration.bucket"
	LatencyCountName  = "dealauth.operation.duration.count"
	AuditDroppedName  = "dealauth.audit.dropped"
	AuthenticatedName = "dealauth.session.authenticated"
)

const (
	attrOperation  = attribute.Key("operation")
	attrOutcome    = attribute.Key("outcome")
	attrUpperBound = attribute.Key("le")
	attrRole       = attribute.Key("role")
)

type metricsSource interface {
	MetricsSnapshot() dealAuth.MetricsSnapshot
	AuditDropped() uint64
}

// stateSource is implemented by *dealAuth.Manager. Sources without it get no
// session gauge.
type stateSource interface {
	State() dealAuth.State
}

type outcomeSeries struct {
	id    dealAuth.MetricID
	attrs metric.MeasurementOption
}

// Exporter publishes Manager metrics as observable OTel instruments. All
// counters share one instrument keyed by operation and outcome; latency is
// exposed as cumulative bucket gauges keyed by their upper bound.
type Exporter struct {
	source       metricsSource
	state        stateSource
	registration metric.Registration

	operations   metric.Int64ObservableCounter
	series       []outcomeSeries
	bucket       metric.Int64ObservableGauge
	bucketAttrs  []metric.MeasurementOption
	count        metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
	session      metric.Int64ObservableGauge
}

// NewExporter registers instruments on meter that read from m.
func NewExporter(meter metric.Meter, m *dealAuth.Manager) (*Exporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, m)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	e.state, _ = source.(stateSource)

	var err error
	if e.operations, err = meter.Int64ObservableCounter(OperationsName,
		metric.WithDescription("Manager operation outcomes."),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", OperationsName, err)
	}
	for _, def := range internaldefs.CounterDefs {
		set := attribute.NewSet(attrOperation.String(def.Operation), attrOutcome.String(def.Outcome))
		e.series = append(e.series, outcomeSeries{id: def.ID, attrs: metric.WithAttributeSet(set)})
	}

	if e.bucket, err = meter.Int64ObservableGauge(LatencyBucketName, metric.WithDescription("Manager operations completed within the bucket bound, cumulative.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyBucketName, err)
	}
	for _, le := range upperBounds() {
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributeSet(attribute.NewSet(attrUpperBound.String(le))))
	}
	if e.count, err = meter.Int64ObservableGauge(LatencyCountName, metric.WithDescription("Manager operations timed.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyCountName, err)
	}

	if e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription("Audit events dropped because the dispatcher queue was full."),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", AuditDroppedName, err)
	}

	observables := []metric.Observable{e.operations, e.bucket, e.count, e.auditDropped}
	if e.state != nil {
		if e.session, err = meter.Int64ObservableGauge(AuthenticatedName, metric.WithDescription("1 while the manager holds an authenticated session.")); err != nil {
			return nil, fmt.Errorf("create %s: %w", AuthenticatedName, err)
		}
		observables = append(observables, e.session)
	}

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, s := range e.series {
		o.ObserveInt64(e.operations, int64(snapshot.Counters[s.id]), s.attrs)
	}

	cumulative := internaldefs.CumulativeBuckets(
		internaldefs.NormalizeBuckets(snapshot.Histograms[dealAuth.MetricOperationLatency]),
	)
	for i, attrs := range e.bucketAttrs {
		o.ObserveInt64(e.bucket, int64(cumulative[i]), attrs)
	}
	o.ObserveInt64(e.count, int64(cumulative[len(cumulative)-1]))
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	if e.state != nil {
		st := e.state.State()
		var v int64
		if st.Authenticated {
			v = 1
		}
		o.ObserveInt64(e.session, v, metric.WithAttributes(attrRole.String(st.Role.String())))
	}
	return nil
}

// upperBounds renders the histogram bounds in seconds, +Inf last.
func upperBounds() []string {
	out := make([]string, 0, len(internaldefs.HistogramBounds)+1)
	for _, b := range internaldefs.HistogramBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

// Close unregisters the callback. The instruments stay on the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
