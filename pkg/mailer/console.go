package mailer

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleSender writes OTPs to the log instead of delivering them.
type ConsoleSender struct {
	log *zap.Logger
}

func NewConsoleSender(log *zap.Logger) *ConsoleSender {
	return &ConsoleSender{log: log.With(zap.String("mailer", "console"))}
}

func (s *ConsoleSender) SendOTP(_ context.Context, email, code string) error {
	s.log.Info("OTP generated",
		zap.String("email", email),
		zap.String("otp_code", code),
	)
	return nil
}
