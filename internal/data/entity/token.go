package entity

import (
	"strings"

	"otp-auth/pkg/apperr"

	"golang.org/x/crypto/blake2b"
)

// RefreshToken is the opaque credential a session is looked up by.
type RefreshToken string

func NewRefreshToken(raw string) (RefreshToken, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperr.Validation("RefreshToken cannot be empty")
	}
	return RefreshToken(raw), nil
}

func (t RefreshToken) String() string {
	return string(t)
}

// Digest is the lookup key stored instead of the raw token.
func (t RefreshToken) Digest() []byte {
	sum := blake2b.Sum256([]byte(t))
	return sum[:]
}

// Token is a signed access token as issued to clients.
type Token string

func NewToken(raw string) (Token, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperr.Validation("Token cannot be empty")
	}
	return Token(raw), nil
}

func (t Token) String() string {
	return string(t)
}
