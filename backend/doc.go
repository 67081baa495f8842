// Package backend is a reference implementation of the remote auth/profile
// contract, backed by Redis.
//
// It exists so the session manager can be exercised end to end in tests,
// the demo and the CLI without a hosted backend. Credentials are hashed with
// argon2id, sessions are short-lived JWTs whose ids can be revoked, and
// profile rows are JSON documents with an email index.
//
// [NewRouter] exposes [Service] over HTTP with chi; [Local] adapts it to
// remote.Service in-process.
package backend
