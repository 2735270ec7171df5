package entity

import (
	"strings"

	"otp-auth/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var emailValidator = validator.New()

// Email is a normalized (trimmed, lower-cased) address.
type Email string

func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if err := emailValidator.Var(normalized, "required,email"); err != nil {
		return "", apperr.Validation("Invalid email format")
	}
	return Email(normalized), nil
}

func (e Email) String() string {
	return string(e)
}
