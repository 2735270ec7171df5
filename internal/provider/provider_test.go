package provider

import (
	"testing"
	"time"

	"otp-auth/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedOTPGenerator(t *testing.T) {
	gen, err := NewFixedOTPGenerator("424242")
	require.NoError(t, err)

	now := time.Now()
	code, err := gen.Generate(now)
	require.NoError(t, err)
	assert.Equal(t, "424242", code.Value())
	assert.Equal(t, now, code.CreatedAt())

	_, err = NewFixedOTPGenerator("42")
	assert.True(t, apperr.IsValidation(err))
}

func TestRandomOTPGenerator(t *testing.T) {
	gen := NewRandomOTPGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := gen.Generate(time.Now())
		require.NoError(t, err)
		assert.Len(t, code.Value(), 6)
		seen[code.Value()] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestUUIDRefreshTokenGenerator(t *testing.T) {
	gen := NewUUIDRefreshTokenGenerator()
	a, b := gen.Generate(), gen.Generate()

	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a.String())
	assert.NoError(t, err)
}
