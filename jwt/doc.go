// Package jwt issues and verifies remote session tokens.
//
// The reference backend signs one token per session (subject = user id,
// sid = session id) with HS256 or Ed25519. Clients never hold the signing key;
// they only call [PeekExpiry] to skip a network round trip for a token that
// has already expired.
package jwt
