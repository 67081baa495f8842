// Package remote defines the contract dealAuth expects from the hosted auth
// and profile backend, and an HTTP client for it.
//
// # Contract
//
// [Service] has two groups of calls: credentials (sign-in, sign-up,
// sign-out, current session, password reset email) and profile rows
// (insert, query by id, query by email). Row queries report absence as
// (Profile{}, false, nil) rather than an error.
//
// # Errors
//
// Failures are classified with package sentinels so callers can branch with
// errors.Is: [ErrInvalidCredentials], [ErrNoSession], [ErrNotFound],
// [ErrConflict], [ErrRateLimited], [ErrUnavailable] (via [*TransportError])
// and [ErrRejected] (via [*StatusError]).
//
// # Client
//
// [Client] speaks JSON over HTTP, retries idempotent reads through
// go-retryablehttp and keeps the bearer token in a [session.Store] so a
// restarted process can resume the session.
package remote
