package client

import (
	"testing"
	"time"

	"otp-auth/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("client-test-key"))
	require.NoError(t, err)
	return raw
}

func TestNewAccessTokenRejectsEmpty(t *testing.T) {
	_, err := NewAccessToken("")
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "AccessToken cannot be empty", apperr.MessageOf(err))
}

func TestAccessTokenExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		exp           time.Time
		expired       bool
		aboutToExpire bool
	}{
		{"an hour left", now.Add(time.Hour), false, false},
		{"exactly the buffer left", now.Add(RefreshBuffer), false, false},
		{"inside the buffer", now.Add(RefreshBuffer - time.Second), false, true},
		{"expires now", now, true, true},
		{"already expired", now.Add(-time.Minute), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := NewAccessToken(signedToken(t, tt.exp))
			require.NoError(t, err)
			assert.Equal(t, tt.exp.Unix(), token.ExpiresAt().Unix())
			assert.Equal(t, tt.expired, token.IsExpired(now))
			assert.Equal(t, tt.aboutToExpire, token.IsAboutToExpire(now))
		})
	}
}

func TestAccessTokenMalformedCountsAsExpired(t *testing.T) {
	for _, raw := range []string{"not-a-jwt", "a.b.c", "only.two"} {
		token, err := NewAccessToken(raw)
		require.NoError(t, err)
		assert.True(t, token.IsExpired(time.Now()), raw)
		assert.True(t, token.NeedsRefresh(time.Now()), raw)
	}
}
