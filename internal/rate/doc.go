// Package rate provides the Redis fixed-window counter that every dealAuth
// throttle is built on.
//
// # Window semantics
//
// INCR + conditional EXPIRE on first hit. The first hit in a window sets the
// TTL; later hits only increment. A key disappearing resets the window.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in internal/limiters).
//   - Be imported outside the dealAuth module.
package rate
