package entity

import (
	"testing"
	"time"

	"otp-auth/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	userID := uuid.New()

	s := NewSession(userID, RefreshToken("rt-1"), now)

	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now, s.LastActivityAt)
	assert.Equal(t, now.Add(7*24*time.Hour), s.ExpiresAt)
	assert.Zero(t, s.Version)
}

func TestSessionIsExpired(t *testing.T) {
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	s := NewSession(uuid.New(), RefreshToken("rt-1"), now)

	assert.False(t, s.IsExpired(now))
	assert.False(t, s.IsExpired(s.ExpiresAt))
	assert.True(t, s.IsExpired(s.ExpiresAt.Add(time.Nanosecond)))
	assert.True(t, s.IsExpired(now.Add(8*24*time.Hour)))
}

func TestSessionRotateDoesNotExtendExpiry(t *testing.T) {
	now := time.Now()
	s := NewSession(uuid.New(), RefreshToken("rt-1"), now)
	expires := s.ExpiresAt

	s.RotateRefreshToken(RefreshToken("rt-2"))

	assert.Equal(t, RefreshToken("rt-2"), s.RefreshToken)
	assert.Equal(t, expires, s.ExpiresAt)
}

func TestSessionTouch(t *testing.T) {
	now := time.Now()
	s := NewSession(uuid.New(), RefreshToken("rt-1"), now)
	s.Touch(now.Add(time.Hour))
	assert.Equal(t, now.Add(time.Hour), s.LastActivityAt)
}

func TestNewRefreshToken(t *testing.T) {
	token, err := NewRefreshToken("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token.String())
	assert.Equal(t, RefreshToken("abc"), token)

	_, err = NewRefreshToken("")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "RefreshToken cannot be empty", apperr.MessageOf(err))

	_, err = NewToken("  ")
	assert.Equal(t, "Token cannot be empty", apperr.MessageOf(err))
}

func TestSessionTokenHashFollowsRotation(t *testing.T) {
	s := NewSession(uuid.New(), RefreshToken("rt-1"), time.Now())
	first := append([]byte(nil), s.TokenHash...)
	assert.Equal(t, RefreshToken("rt-1").Digest(), first)
	assert.Len(t, first, 32)

	s.RotateRefreshToken(RefreshToken("rt-2"))
	assert.Equal(t, RefreshToken("rt-2").Digest(), s.TokenHash)
	assert.NotEqual(t, first, s.TokenHash)

	clone := s.Clone()
	clone.RotateRefreshToken(RefreshToken("rt-3"))
	assert.Equal(t, RefreshToken("rt-2").Digest(), s.TokenHash)
}
