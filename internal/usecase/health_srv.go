package usecase

import (
	"context"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/dto/response"
	"otp-auth/pkg/apperr"

	"go.uber.org/zap"
)

type HealthService interface {
	Check(ctx context.Context) (*response.HealthResponse, error)
}

type healthService struct {
	repo repository.HealthRepository
	deps Dependencies
	log  *zap.Logger
}

func NewHealthService(repo repository.HealthRepository, deps Dependencies, log *zap.Logger) HealthService {
	return &healthService{
		repo: repo,
		deps: deps,
		log:  log.With(zap.String("service", "health")),
	}
}

// Check stamps the health record and reports whether storage answers.
func (hs *healthService) Check(ctx context.Context) (*response.HealthResponse, error) {
	now := hs.deps.now()

	if err := hs.repo.Ping(ctx); err != nil {
		hs.log.Warn("Storage ping failed", zap.Error(err))
		return &response.HealthResponse{
			Status:        response.HealthStatusDegraded,
			Database:      "down",
			LastCheckedAt: now,
		}, nil
	}

	health, err := hs.repo.Find(ctx)
	if err != nil {
		return nil, apperr.Other("find health record", err)
	}
	if health == nil {
		health = entity.NewHealth(now)
	} else {
		health.Check(now)
	}

	if err := hs.repo.Save(ctx, health); err != nil {
		return nil, apperr.Other("save health record", err)
	}

	return &response.HealthResponse{
		ID:            health.ID.String(),
		Status:        response.HealthStatusOK,
		Database:      "up",
		StartedAt:     health.CreatedAt,
		LastCheckedAt: health.LastCheckedAt,
		UptimeSeconds: int64(health.Uptime(now).Seconds()),
	}, nil
}
