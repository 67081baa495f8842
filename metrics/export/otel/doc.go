// Package otel publishes Manager metrics through an OpenTelemetry meter.
//
// [NewExporter] registers one observable counter, dealauth.operations, with
// operation and outcome attributes, cumulative latency bucket gauges keyed by
// "le", the audit drop counter, and a dealauth.session.authenticated gauge
// when the source exposes State. The caller owns the MeterProvider.
package otel
