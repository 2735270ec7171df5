package client

import (
	"strings"
	"time"

	"otp-auth/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RefreshBuffer is how long before expiry a token counts as about to expire.
	RefreshBuffer = 15 * time.Minute
	// DefaultCheckInterval is how often the scheduler inspects the stored token.
	DefaultCheckInterval = 60 * time.Second
)

// AccessToken is the client view of a server-issued JWT. The signature is
// not checked here; only the exp claim is read.
type AccessToken struct {
	value     string
	expiresAt time.Time
}

func NewAccessToken(raw string) (AccessToken, error) {
	if strings.TrimSpace(raw) == "" {
		return AccessToken{}, apperr.Validation("AccessToken cannot be empty")
	}
	return AccessToken{value: raw, expiresAt: decodeExpiry(raw)}, nil
}

// decodeExpiry returns the Unix epoch for tokens without a readable exp.
func decodeExpiry(raw string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil || claims.ExpiresAt == nil {
		return time.Unix(0, 0)
	}
	return claims.ExpiresAt.Time
}

func (t AccessToken) String() string {
	return t.value
}

func (t AccessToken) ExpiresAt() time.Time {
	return t.expiresAt
}

func (t AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.expiresAt)
}

func (t AccessToken) IsAboutToExpire(now time.Time) bool {
	return now.Add(RefreshBuffer).After(t.expiresAt)
}

// NeedsRefresh reports whether the token should be renewed before use.
func (t AccessToken) NeedsRefresh(now time.Time) bool {
	return t.IsExpired(now) || t.IsAboutToExpire(now)
}
