package usecase

import (
	"context"
	"time"

	"otp-auth/internal/data/entity"
)

// EmailSender delivers an OTP out of band.
type EmailSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

type OTPGenerator interface {
	Generate(now time.Time) (entity.OTPCode, error)
}

// TokenGenerator signs an access token carrying the email and an expiry.
type TokenGenerator interface {
	Generate(email string) (string, error)
}

// TokenVerifier returns the email of a valid access token.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type RefreshTokenGenerator interface {
	Generate() entity.RefreshToken
}

type Clock func() time.Time

// Dependencies are the outbound ports the workflows talk to.
type Dependencies struct {
	Mailer        EmailSender
	OTP           OTPGenerator
	Tokens        TokenGenerator
	RefreshTokens RefreshTokenGenerator
	Clock         Clock
}

func (d Dependencies) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock()
}
