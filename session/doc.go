// Package session persists the remote session token between process runs so
// the session manager can restore a signed-in user at startup.
//
// # Binary encoding
//
// Tokens are stored in a compact versioned binary format. The encoder is
// append-only: a new version may add trailing fields but never reinterprets
// old ones. Decode rejects unknown versions.
//
// # Architecture boundaries
//
// This package owns the [Token] model and the [Store] implementations
// (memory, Redis, file). It does not parse or verify the token itself and it
// never talks to the remote service.
package session
