// Package internal contains helpers that are private to dealAuth: random
// secrets for reset records and hashing of identifiers used in Redis keys.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: orchestration sequences for every Manager operation
//   - limiters: sign-in and password reset throttles
//   - metrics: lock-free counters and latency histograms
//   - rate: core Redis-backed fixed-window counters
//
// # What this package must NOT do
//
//   - Export types that appear in the public dealAuth API.
//   - Be imported by any package outside the dealAuth module.
package internal
