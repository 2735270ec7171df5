package entity

import (
	"testing"
	"time"

	"otp-auth/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTPCode(t *testing.T) {
	now := time.Now()

	valid := []string{"000000", "123456", "999999", "100000"}
	for _, v := range valid {
		code, err := NewOTPCode(v, now)
		require.NoError(t, err, v)
		assert.Equal(t, v, code.Value())
	}

	invalid := []string{"", "12345", "1234567", "12a456", " 123456", "123456 ", "１２３４５６", "-12345"}
	for _, v := range invalid {
		_, err := NewOTPCode(v, now)
		require.Error(t, err, v)
		assert.True(t, apperr.IsValidation(err), v)
		assert.Equal(t, "Invalid OTP code format", apperr.MessageOf(err))
	}
}

func TestGenerateOTPCode(t *testing.T) {
	now := time.Now()
	for i := 0; i < 200; i++ {
		code, err := GenerateOTPCode(now)
		require.NoError(t, err)
		assert.Regexp(t, `^[1-9]\d{5}$`, code.Value())
		assert.Equal(t, now, code.CreatedAt())
	}
}

func TestOTPCodeIsExpired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	code, err := NewOTPCode("123456", issued)
	require.NoError(t, err)

	assert.False(t, code.IsExpired(issued))
	assert.False(t, code.IsExpired(issued.Add(4*time.Minute)))
	assert.False(t, code.IsExpired(issued.Add(5*time.Minute)))
	assert.True(t, code.IsExpired(issued.Add(5*time.Minute+time.Millisecond)))
	assert.True(t, code.IsExpired(issued.Add(time.Hour)))
}

func TestOTPCodeEqualsIgnoresCreatedAt(t *testing.T) {
	a, _ := NewOTPCode("654321", time.Now())
	b, _ := NewOTPCode("654321", time.Now().Add(-time.Hour))
	c, _ := NewOTPCode("654320", time.Now())

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}
