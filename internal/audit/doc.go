// Package audit implements async event dispatching for session operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, func, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record with timestamp, type, user, email, role, outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the Manager and flow functions do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import dealAuth or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
