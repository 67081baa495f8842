// Package prometheus exposes Manager metrics as a prometheus.Collector.
//
// Register a [Collector] with your own registry, or mount [Handler] which
// serves it from a private one. Counter names follow dealauth_*_total; the
// single histogram is dealauth_operation_latency_seconds.
package prometheus
