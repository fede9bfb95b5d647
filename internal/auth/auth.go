package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingHeader = errors.New("missing Authorization header")
	ErrInvalidScheme = errors.New("invalid Authorization header format")
	ErrMissingToken  = errors.New("missing bearer token")
)

type tokenKey struct{}

// WithToken stores the authenticated bearer token on ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token stored by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok
}

// ExtractBearerToken reads the token from an "Authorization: Bearer" header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingHeader
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrInvalidScheme
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Equal compares a presented token with the expected one in constant time.
// An empty token never matches.
func Equal(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	if len(presented) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
