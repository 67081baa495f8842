package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const resetSecretSize = 32

// NewResetToken returns a random url-safe reset token and the digest that
// should be persisted in its place.
func NewResetToken() (string, [32]byte, error) {
	var secret [resetSecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", [32]byte{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(secret[:])
	return token, sha256.Sum256(secret[:]), nil
}

// HashResetToken recomputes the digest of a token produced by NewResetToken.
func HashResetToken(token string) ([32]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return [32]byte{}, err
	}
	if len(raw) != resetSecretSize {
		return [32]byte{}, errors.New("invalid reset token size")
	}
	return sha256.Sum256(raw), nil
}

// HashIdentifier returns a stable hex digest of a normalized identifier.
// Redis keys use it so addresses never appear in key names.
func HashIdentifier(v string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(v)))
	return hex.EncodeToString(sum[:16])
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
