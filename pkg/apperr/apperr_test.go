package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("User not found"), KindNotFound},
		{"validation", Validation("Invalid email format"), KindValidation},
		{"other", Other("save session", errors.New("conn reset")), KindOther},
		{"plain error", errors.New("boom"), KindOther},
		{"wrapped validation", fmt.Errorf("verify: %w", Validation("Invalid or expired OTP code")), KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	err := fmt.Errorf("refresh: %w", Validation("Invalid or expired session"))
	assert.Equal(t, "Invalid or expired session", MessageOf(err))

	cause := errors.New("dial tcp: refused")
	other := Other("find user", cause)
	assert.Equal(t, "find user: dial tcp: refused", other.Error())
	assert.ErrorIs(t, other, cause)
}
