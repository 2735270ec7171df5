package repository

import (
	"context"
	"errors"
	"fmt"

	"otp-auth/internal/data/entity"
	"otp-auth/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type HealthRepository interface {
	Find(ctx context.Context) (*entity.Health, error)
	Save(ctx context.Context, health *entity.Health) error
	Ping(ctx context.Context) error
}

type healthRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewHealthRepository(db database.PgxIface, log *zap.Logger) HealthRepository {
	return &healthRepository{
		db:  db,
		log: log.With(zap.String("repository", "health")),
	}
}

func (r *healthRepository) Find(ctx context.Context) (*entity.Health, error) {
	query := `
		SELECT id, created_at, last_checked_at
		FROM health_checks
		ORDER BY created_at
		LIMIT 1
	`

	var health entity.Health
	err := r.db.QueryRow(ctx, query).Scan(&health.ID, &health.CreatedAt, &health.LastCheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find health record", zap.Error(err))
		return nil, fmt.Errorf("find health record: %w", err)
	}

	return &health, nil
}

func (r *healthRepository) Save(ctx context.Context, health *entity.Health) error {
	query := `
		INSERT INTO health_checks (id, created_at, last_checked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET last_checked_at = EXCLUDED.last_checked_at
	`

	if _, err := r.db.Exec(ctx, query, health.ID, health.CreatedAt, health.LastCheckedAt); err != nil {
		r.log.Error("Failed to save health record", zap.Error(err))
		return fmt.Errorf("save health record %s: %w", health.ID, err)
	}

	return nil
}

func (r *healthRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
