package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenVerifier accepts a single shared operator token.
type TokenVerifier struct {
	token []byte
}

func NewTokenVerifier(token string) *TokenVerifier {
	return &TokenVerifier{token: []byte(strings.TrimSpace(token))}
}

func (v *TokenVerifier) Verify(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	if len(v.token) == 0 || subtle.ConstantTimeCompare([]byte(token), v.token) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
