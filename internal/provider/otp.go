package provider

import (
	"time"

	"otp-auth/internal/data/entity"
)

// RandomOTPGenerator issues codes from crypto/rand.
type RandomOTPGenerator struct{}

func NewRandomOTPGenerator() *RandomOTPGenerator {
	return &RandomOTPGenerator{}
}

func (g *RandomOTPGenerator) Generate(now time.Time) (entity.OTPCode, error) {
	return entity.GenerateOTPCode(now)
}

// FixedOTPGenerator always issues the same code. Test environments only.
type FixedOTPGenerator struct {
	code string
}

func NewFixedOTPGenerator(code string) (*FixedOTPGenerator, error) {
	if _, err := entity.NewOTPCode(code, time.Time{}); err != nil {
		return nil, err
	}
	return &FixedOTPGenerator{code: code}, nil
}

func (g *FixedOTPGenerator) Generate(now time.Time) (entity.OTPCode, error) {
	return entity.NewOTPCode(g.code, now)
}
