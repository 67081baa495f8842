// Package limiters provides domain-specific throttles built on top of the
// internal/rate primitives.
//
// # Limiters
//
//   - [SignInLimiter]: per-email + optional per-IP failure throttle for the
//     reference backend's sign-in endpoint.
//   - [PasswordResetLimiter]: per-email request throttle applied by the
//     Manager before it asks the remote service to send a reset email.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import dealAuth or any sibling internal package except internal/rate
//     and the identifier hashing in internal.
//   - Make policy decisions beyond counting. Callers decide consequences.
package limiters
