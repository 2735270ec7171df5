package repository

import (
	"errors"

	"otp-auth/pkg/database"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrStaleVersion means the stored aggregate changed after it was loaded.
	ErrStaleVersion = errors.New("stale version")
	ErrNotFound     = errors.New("record not found")
)

type Repository struct {
	User         UserRepository
	LoginAttempt LoginAttemptRepository
	Session      SessionRepository
	Health       HealthRepository
}

// NewRepository wires the Postgres repositories. A non-nil redis client moves
// login attempts to Redis.
func NewRepository(db database.PgxIface, rdb *redis.Client, log *zap.Logger) *Repository {
	repo := &Repository{
		User:         NewUserRepository(db, log),
		LoginAttempt: NewLoginAttemptRepository(db, log),
		Session:      NewSessionRepository(db, log),
		Health:       NewHealthRepository(db, log),
	}
	if rdb != nil {
		repo.LoginAttempt = NewRedisLoginAttemptRepository(rdb, log)
	}
	return repo
}

// NewMemoryRepository keeps everything in process memory.
func NewMemoryRepository() *Repository {
	return &Repository{
		User:         NewMemoryUserRepository(),
		LoginAttempt: NewMemoryLoginAttemptRepository(),
		Session:      NewMemorySessionRepository(),
		Health:       NewMemoryHealthRepository(),
	}
}
