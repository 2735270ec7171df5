package usecase

import (
	"otp-auth/internal/data/repository"
	"otp-auth/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth   AuthService
	User   UserService
	Health HealthService
}

func NewService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) *Service {
	return &Service{
		Auth:   NewAuthService(repo, deps, config.Auth, log),
		User:   NewUserService(repo, deps, log),
		Health: NewHealthService(repo.Health, deps, log),
	}
}
