package wire

import (
	"fmt"

	"otp-auth/internal/provider"
	"otp-auth/internal/usecase"
	"otp-auth/pkg/mailer"
	"otp-auth/pkg/middleware"
	"otp-auth/pkg/security"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

// buildDependencies picks the port implementations named by config.
func buildDependencies(config *utils.Config, logger *zap.Logger) (usecase.Dependencies, middleware.TokenVerifier, error) {
	tokens := security.NewJWTService(config.JWT.Secret, config.JWT.AccessTTL, config.App.Name)

	var otp usecase.OTPGenerator = provider.NewRandomOTPGenerator()
	if config.OTP.TestCode != "" {
		fixed, err := provider.NewFixedOTPGenerator(config.OTP.TestCode)
		if err != nil {
			return usecase.Dependencies{}, nil, fmt.Errorf("TEST_OTP: %w", err)
		}
		logger.Warn("Fixed OTP code enabled; do not use in production")
		otp = fixed
	}

	var sender usecase.EmailSender
	switch config.Email.Driver {
	case "smtp":
		sender = mailer.NewSMTPSender(config.Email, config.App.Name, logger)
	case "", "console":
		sender = mailer.NewConsoleSender(logger)
	default:
		return usecase.Dependencies{}, nil, fmt.Errorf("unknown email driver %q", config.Email.Driver)
	}

	return usecase.Dependencies{
		Mailer:        sender,
		OTP:           otp,
		Tokens:        tokens,
		RefreshTokens: provider.NewUUIDRefreshTokenGenerator(),
	}, tokens, nil
}
