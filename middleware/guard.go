package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/dealAuth/remote"
)

// Validator resolves a bearer token to its session.
type Validator interface {
	Session(ctx context.Context, token string) (remote.Credential, error)
}

type credentialContextKey struct{}
type tokenContextKey struct{}

// CredentialFromContext returns the session injected by Guard.
func CredentialFromContext(ctx context.Context) (remote.Credential, bool) {
	cred, ok := ctx.Value(credentialContextKey{}).(remote.Credential)
	return cred, ok
}

// TokenFromContext returns the raw bearer token injected by Guard.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok
}

func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w, "unauthorized")
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			cred, err := v.Session(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid session")
				return
			}

			ctx := context.WithValue(r.Context(), credentialContextKey{}, cred)
			ctx = context.WithValue(ctx, tokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAPIKey checks the apikey header. An empty key disables the check.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("apikey")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				unauthorized(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(remote.ErrorResponse{Error: msg})
}
