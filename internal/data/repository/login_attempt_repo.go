package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// LoginAttemptRepository stores at most one attempt per email.
//
// Save with Version == 0 replaces whatever is stored for the email. Save with
// a loaded attempt only succeeds if nobody wrote in between, otherwise it
// returns ErrStaleVersion. Consume deletes the attempt under the same rule.
type LoginAttemptRepository interface {
	Save(ctx context.Context, attempt *entity.LoginAttempt) error
	FindByEmail(ctx context.Context, email entity.Email) (*entity.LoginAttempt, error)
	DeleteByEmail(ctx context.Context, email entity.Email) error
	Consume(ctx context.Context, attempt *entity.LoginAttempt) error
}

type loginAttemptRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewLoginAttemptRepository(db database.PgxIface, log *zap.Logger) LoginAttemptRepository {
	return &loginAttemptRepository{
		db:  db,
		log: log.With(zap.String("repository", "login_attempt")),
	}
}

func (r *loginAttemptRepository) Save(ctx context.Context, attempt *entity.LoginAttempt) error {
	if attempt.Version == 0 {
		return r.replace(ctx, attempt)
	}

	query := `
		UPDATE login_attempts
		SET failed_attempts = $4, last_failed_at = $5, version = version + 1
		WHERE email = $1 AND id = $2 AND version = $3
		RETURNING version
	`

	var version int64
	err := r.db.QueryRow(ctx, query,
		attempt.Email,
		attempt.ID,
		attempt.Version,
		attempt.FailedAttempts,
		attempt.LastFailedAt,
	).Scan(&version)

	if errors.Is(err, pgx.ErrNoRows) {
		r.log.Warn("Login attempt changed concurrently",
			zap.String("email", attempt.Email.String()),
			zap.Int64("version", attempt.Version),
		)
		return ErrStaleVersion
	}
	if err != nil {
		r.log.Error("Failed to update login attempt",
			zap.Error(err),
			zap.String("email", attempt.Email.String()),
		)
		return fmt.Errorf("update login attempt for %s: %w", attempt.Email, err)
	}

	attempt.Version = version
	return nil
}

// replace overwrites the attempt for the email. The stored version keeps
// counting up so a writer holding the old attempt cannot match the new one.
func (r *loginAttemptRepository) replace(ctx context.Context, attempt *entity.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (email, id, otp_code, otp_created_at,
		                            failed_attempts, last_failed_at, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		ON CONFLICT (email) DO UPDATE
		SET id = EXCLUDED.id,
		    otp_code = EXCLUDED.otp_code,
		    otp_created_at = EXCLUDED.otp_created_at,
		    failed_attempts = EXCLUDED.failed_attempts,
		    last_failed_at = EXCLUDED.last_failed_at,
		    version = login_attempts.version + 1,
		    created_at = EXCLUDED.created_at
		RETURNING version
	`

	var version int64
	err := r.db.QueryRow(ctx, query,
		attempt.Email,
		attempt.ID,
		attempt.OTP.Value(),
		attempt.OTP.CreatedAt(),
		attempt.FailedAttempts,
		attempt.LastFailedAt,
		attempt.CreatedAt,
	).Scan(&version)
	if err != nil {
		r.log.Error("Failed to save login attempt",
			zap.Error(err),
			zap.String("email", attempt.Email.String()),
		)
		return fmt.Errorf("save login attempt for %s: %w", attempt.Email, err)
	}

	attempt.Version = version
	return nil
}

func (r *loginAttemptRepository) FindByEmail(ctx context.Context, email entity.Email) (*entity.LoginAttempt, error) {
	query := `
		SELECT id, email, otp_code, otp_created_at, failed_attempts,
		       last_failed_at, version, created_at
		FROM login_attempts
		WHERE email = $1
	`

	var (
		attempt      entity.LoginAttempt
		code         string
		otpCreatedAt time.Time
	)
	err := r.db.QueryRow(ctx, query, email).Scan(
		&attempt.ID,
		&attempt.Email,
		&code,
		&otpCreatedAt,
		&attempt.FailedAttempts,
		&attempt.LastFailedAt,
		&attempt.Version,
		&attempt.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find login attempt",
			zap.Error(err),
			zap.String("email", email.String()),
		)
		return nil, fmt.Errorf("find login attempt for %s: %w", email, err)
	}

	otp, err := entity.NewOTPCode(code, otpCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode stored otp for %s: %w", email, err)
	}
	attempt.OTP = otp

	return &attempt, nil
}

func (r *loginAttemptRepository) DeleteByEmail(ctx context.Context, email entity.Email) error {
	query := `DELETE FROM login_attempts WHERE email = $1`

	if _, err := r.db.Exec(ctx, query, email); err != nil {
		r.log.Error("Failed to delete login attempt",
			zap.Error(err),
			zap.String("email", email.String()),
		)
		return fmt.Errorf("delete login attempt for %s: %w", email, err)
	}

	return nil
}

func (r *loginAttemptRepository) Consume(ctx context.Context, attempt *entity.LoginAttempt) error {
	query := `DELETE FROM login_attempts WHERE email = $1 AND id = $2 AND version = $3`

	result, err := r.db.Exec(ctx, query, attempt.Email, attempt.ID, attempt.Version)
	if err != nil {
		r.log.Error("Failed to consume login attempt",
			zap.Error(err),
			zap.String("email", attempt.Email.String()),
		)
		return fmt.Errorf("consume login attempt for %s: %w", attempt.Email, err)
	}

	if result.RowsAffected() == 0 {
		return ErrStaleVersion
	}

	return nil
}
