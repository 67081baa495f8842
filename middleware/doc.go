// Package middleware exposes the HTTP guards used by the reference backend.
//
// # Guards
//
//   - [Guard]: reads the Authorization bearer token, asks a [Validator] for
//     the session behind it and injects the credential into the context.
//   - [RequireAPIKey]: rejects requests without the configured apikey header.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Validator calls. It does NOT
// parse tokens or touch Redis itself.
package middleware
