package provider

import (
	"otp-auth/internal/data/entity"

	"github.com/google/uuid"
)

// UUIDRefreshTokenGenerator issues random v4 UUIDs as refresh tokens.
type UUIDRefreshTokenGenerator struct{}

func NewUUIDRefreshTokenGenerator() *UUIDRefreshTokenGenerator {
	return &UUIDRefreshTokenGenerator{}
}

func (g *UUIDRefreshTokenGenerator) Generate() entity.RefreshToken {
	return entity.RefreshToken(uuid.NewString())
}
