// Package stores provides the Redis-backed record stores behind the
// reference backend: credentials, profile rows, one-time token records
// (password reset and email verification) and revoked session ids.
//
// # Design
//
// Credentials and one-time records are versioned binary blobs. Profile rows
// are JSON so they read the same as the wire form. Multi-key writes (profile
// row + email index) go through a Lua script; read-modify-write updates use
// WATCH/MULTI optimistic transactions with retry on contention. One-time
// records are single-use and are deleted when consumed.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control. It does NOT hash
// passwords, generate tokens, enforce rate limits or decide HTTP status
// codes; the backend package does.
//
// # What this package must NOT do
//
//   - Import dealAuth or any sibling internal package.
//   - Store plaintext secrets (callers pass digests).
package stores
