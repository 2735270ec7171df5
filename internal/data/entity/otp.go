package entity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"otp-auth/pkg/apperr"
)

// OTPLifetime is how long a code stays valid after it was issued.
const OTPLifetime = 5 * time.Minute

var otpPattern = regexp.MustCompile(`^\d{6}$`)

// OTPCode is an immutable 6-digit code stamped with its issue time.
type OTPCode struct {
	value     string
	createdAt time.Time
}

func NewOTPCode(value string, createdAt time.Time) (OTPCode, error) {
	if !otpPattern.MatchString(value) {
		return OTPCode{}, apperr.Validation("Invalid OTP code format")
	}
	return OTPCode{value: value, createdAt: createdAt}, nil
}

// GenerateOTPCode draws a uniform code in 100000-999999 from crypto/rand.
func GenerateOTPCode(now time.Time) (OTPCode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return OTPCode{}, fmt.Errorf("generate otp: %w", err)
	}
	return OTPCode{value: fmt.Sprintf("%06d", n.Int64()+100000), createdAt: now}, nil
}

func (c OTPCode) Value() string {
	return c.value
}

func (c OTPCode) CreatedAt() time.Time {
	return c.createdAt
}

func (c OTPCode) IsExpired(now time.Time) bool {
	return now.Sub(c.createdAt) > OTPLifetime
}

// Equals compares values only; expiry is checked separately.
func (c OTPCode) Equals(other OTPCode) bool {
	return c.value == other.value
}
