package repository

import (
	"context"
	"errors"
	"fmt"

	"otp-auth/internal/data/entity"
	"otp-auth/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SessionRepository persists sessions keyed by id, indexed by user and by
// refresh-token digest. Save follows the same version rules as login attempts.
type SessionRepository interface {
	Save(ctx context.Context, session *entity.Session) error
	FindByRefreshToken(ctx context.Context, token entity.RefreshToken) (*entity.Session, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Session, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteByRefreshToken(ctx context.Context, token entity.RefreshToken) error
}

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, last_activity_at, version, created_at`

func scanSession(row pgx.Row) (*entity.Session, error) {
	var session entity.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.LastActivityAt,
		&session.Version,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *entity.Session) error {
	if session.Version == 0 {
		return r.create(ctx, session)
	}

	query := `
		UPDATE sessions
		SET refresh_token_hash = $3, last_activity_at = $4, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	var version int64
	err := r.db.QueryRow(ctx, query,
		session.ID,
		session.Version,
		session.TokenHash,
		session.LastActivityAt,
	).Scan(&version)

	if errors.Is(err, pgx.ErrNoRows) {
		r.log.Warn("Session changed concurrently",
			zap.String("session_id", session.ID.String()),
			zap.Int64("version", session.Version),
		)
		return ErrStaleVersion
	}
	if err != nil {
		r.log.Error("Failed to update session",
			zap.Error(err),
			zap.String("session_id", session.ID.String()),
		)
		return fmt.Errorf("update session %s: %w", session.ID, err)
	}

	session.Version = version
	return nil
}

func (r *sessionRepository) create(ctx context.Context, session *entity.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, expires_at,
		                      last_activity_at, version, created_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
	`

	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.LastActivityAt,
		session.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create session",
			zap.Error(err),
			zap.String("user_id", session.UserID.String()),
		)
		return fmt.Errorf("create session for user %s: %w", session.UserID, err)
	}

	session.Version = 1
	return nil
}

func (r *sessionRepository) FindByRefreshToken(ctx context.Context, token entity.RefreshToken) (*entity.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token_hash = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, token.Digest()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session by refresh token", zap.Error(err))
		return nil, fmt.Errorf("find session by refresh token: %w", err)
	}

	session.RefreshToken = token
	return session, nil
}

// FindByUserID returns the newest session of the user.
func (r *sessionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	session, err := scanSession(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session by user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find session by user %s: %w", userID, err)
	}

	return session, nil
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM sessions WHERE user_id = $1`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to delete user sessions",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("delete sessions of user %s: %w", userID, err)
	}

	r.log.Debug("User sessions deleted",
		zap.String("user_id", userID.String()),
		zap.Int64("count", result.RowsAffected()),
	)
	return nil
}

func (r *sessionRepository) DeleteByRefreshToken(ctx context.Context, token entity.RefreshToken) error {
	query := `DELETE FROM sessions WHERE refresh_token_hash = $1`

	if _, err := r.db.Exec(ctx, query, token.Digest()); err != nil {
		r.log.Error("Failed to delete session by refresh token", zap.Error(err))
		return fmt.Errorf("delete session by refresh token: %w", err)
	}

	return nil
}
