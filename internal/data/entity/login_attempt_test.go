package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttempt(t *testing.T, issued time.Time) *LoginAttempt {
	t.Helper()
	code, err := NewOTPCode("123456", issued)
	require.NoError(t, err)
	return NewLoginAttempt(Email("a@test.com"), code)
}

func TestLoginAttemptVerifyCode(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	attempt := newTestAttempt(t, issued)

	right, _ := NewOTPCode("123456", issued)
	wrong, _ := NewOTPCode("000000", issued)

	assert.True(t, attempt.VerifyCode(right, issued.Add(time.Minute)))
	assert.False(t, attempt.VerifyCode(wrong, issued.Add(time.Minute)))
	assert.False(t, attempt.VerifyCode(right, issued.Add(6*time.Minute)), "expired code must not verify")
}

func TestLoginAttemptIsBlocked(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	attempt := newTestAttempt(t, issued)
	assert.Equal(t, 0, attempt.FailedAttempts)
	assert.Nil(t, attempt.LastFailedAt)

	now := issued
	for i := 1; i < MaxFailedAttempts; i++ {
		attempt.RegisterFailedAttempt(now)
		assert.Equal(t, i, attempt.FailedAttempts)
		assert.False(t, attempt.IsBlocked(now), "blocked after %d failures", i)
	}

	attempt.RegisterFailedAttempt(now)
	assert.Equal(t, 5, attempt.FailedAttempts)
	assert.True(t, attempt.IsBlocked(now))
	assert.True(t, attempt.IsBlocked(now.Add(29*time.Minute+59*time.Second)))
	assert.False(t, attempt.IsBlocked(now.Add(30*time.Minute)))
	assert.False(t, attempt.IsBlocked(now.Add(2*time.Hour)))
}

func TestLoginAttemptCounterResetsAfterLockout(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	attempt := newTestAttempt(t, issued)

	for i := 0; i < MaxFailedAttempts; i++ {
		attempt.RegisterFailedAttempt(issued)
	}
	require.True(t, attempt.IsBlocked(issued))

	// Reading after the window does not reset the counter.
	later := issued.Add(31 * time.Minute)
	assert.False(t, attempt.IsBlocked(later))
	assert.Equal(t, 5, attempt.FailedAttempts)

	attempt.RegisterFailedAttempt(later)
	assert.Equal(t, 1, attempt.FailedAttempts)
	require.NotNil(t, attempt.LastFailedAt)
	assert.Equal(t, later, *attempt.LastFailedAt)
}

func TestLoginAttemptHasBlockExpiredWithoutFailures(t *testing.T) {
	attempt := newTestAttempt(t, time.Now())
	assert.False(t, attempt.HasBlockExpired(time.Now().Add(24*time.Hour)))
}

func TestLoginAttemptClone(t *testing.T) {
	now := time.Now()
	attempt := newTestAttempt(t, now)
	attempt.RegisterFailedAttempt(now)

	clone := attempt.Clone()
	clone.RegisterFailedAttempt(now.Add(time.Minute))

	assert.Equal(t, 1, attempt.FailedAttempts)
	assert.Equal(t, now, *attempt.LastFailedAt)
	assert.Equal(t, 2, clone.FailedAttempts)
}
