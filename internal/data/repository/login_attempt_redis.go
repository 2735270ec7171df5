package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"otp-auth/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loginAttemptKeyPrefix = "auth:login_attempt:"

// attemptTTL outlives both the OTP and the lockout window.
const attemptTTL = entity.LockoutWindow + entity.OTPLifetime

type redisLoginAttemptRepository struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisLoginAttemptRepository keeps attempts in Redis hashes. Conditional
// writes use WATCH/MULTI so concurrent failures are never lost.
func NewRedisLoginAttemptRepository(client *redis.Client, log *zap.Logger) LoginAttemptRepository {
	return &redisLoginAttemptRepository{
		client: client,
		log:    log.With(zap.String("repository", "login_attempt_redis")),
	}
}

func loginAttemptKey(email entity.Email) string {
	return loginAttemptKeyPrefix + email.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (r *redisLoginAttemptRepository) Save(ctx context.Context, attempt *entity.LoginAttempt) error {
	if attempt.Version == 0 {
		return r.replace(ctx, attempt)
	}

	key := loginAttemptKey(attempt.Email)
	var version int64

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := checkAttemptGeneration(ctx, tx, key, attempt); err != nil {
			return err
		}

		var incr *redis.IntCmd
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "failed_attempts", attempt.FailedAttempts)
			if attempt.LastFailedAt != nil {
				pipe.HSet(ctx, key, "last_failed_at", formatTime(*attempt.LastFailedAt))
			} else {
				pipe.HDel(ctx, key, "last_failed_at")
			}
			incr = pipe.HIncrBy(ctx, key, "version", 1)
			pipe.Expire(ctx, key, attemptTTL)
			return nil
		})
		if err != nil {
			return err
		}
		version = incr.Val()
		return nil
	}, key)

	if errors.Is(err, ErrStaleVersion) || errors.Is(err, redis.TxFailedErr) {
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

func (r *redisLoginAttemptRepository) replace(ctx context.Context, attempt *entity.LoginAttempt) error {
	key := loginAttemptKey(attempt.Email)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", attempt.ID.String(),
			"otp_code", attempt.OTP.Value(),
			"otp_created_at", formatTime(attempt.OTP.CreatedAt()),
			"failed_attempts", attempt.FailedAttempts,
			"created_at", formatTime(attempt.CreatedAt),
		)
		if attempt.LastFailedAt != nil {
			pipe.HSet(ctx, key, "last_failed_at", formatTime(*attempt.LastFailedAt))
		} else {
			pipe.HDel(ctx, key, "last_failed_at")
		}
		incr = pipe.HIncrBy(ctx, key, "version", 1)
		pipe.Expire(ctx, key, attemptTTL)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to save login attempt",
			zap.Error(err),
			zap.String("email", attempt.Email.String()),
		)
		return fmt.Errorf("save login attempt for %s: %w", attempt.Email, err)
	}

	attempt.Version = incr.Val()
	return nil
}

func (r *redisLoginAttemptRepository) FindByEmail(ctx context.Context, email entity.Email) (*entity.LoginAttempt, error) {
	data, err := r.client.HGetAll(ctx, loginAttemptKey(email)).Result()
	if err != nil {
		r.log.Error("Failed to find login attempt",
			zap.Error(err),
			zap.String("email", email.String()),
		)
		return nil, fmt.Errorf("find login attempt for %s: %w", email, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	attempt, err := decodeLoginAttempt(email, data)
	if err != nil {
		return nil, fmt.Errorf("decode login attempt for %s: %w", email, err)
	}
	return attempt, nil
}

func (r *redisLoginAttemptRepository) DeleteByEmail(ctx context.Context, email entity.Email) error {
	if err := r.client.Del(ctx, loginAttemptKey(email)).Err(); err != nil {
		r.log.Error("Failed to delete login attempt",
			zap.Error(err),
			zap.String("email", email.String()),
		)
		return fmt.Errorf("delete login attempt for %s: %w", email, err)
	}
	return nil
}

func (r *redisLoginAttemptRepository) Consume(ctx context.Context, attempt *entity.LoginAttempt) error {
	key := loginAttemptKey(attempt.Email)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := checkAttemptGeneration(ctx, tx, key, attempt); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, ErrStaleVersion) || errors.Is(err, redis.TxFailedErr) {
		return ErrStaleVersion
	}
	if err != nil {
		r.log.Error("Failed to consume login attempt",
			zap.Error(err),
			zap.String("email", attempt.Email.String()),
		)
		return fmt.Errorf("consume login attempt for %s: %w", attempt.Email, err)
	}
	return nil
}

// checkAttemptGeneration fails with ErrStaleVersion unless the stored hash
// still holds the id and version the caller loaded.
func checkAttemptGeneration(ctx context.Context, tx *redis.Tx, key string, attempt *entity.LoginAttempt) error {
	values, err := tx.HMGet(ctx, key, "id", "version").Result()
	if err != nil {
		return err
	}
	id, _ := values[0].(string)
	rawVersion, _ := values[1].(string)
	version, _ := strconv.ParseInt(rawVersion, 10, 64)
	if id != attempt.ID.String() || version != attempt.Version {
		return ErrStaleVersion
	}
	return nil
}

func decodeLoginAttempt(email entity.Email, data map[string]string) (*entity.LoginAttempt, error) {
	id, err := uuid.Parse(data["id"])
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	otpCreatedAt, err := time.Parse(time.RFC3339Nano, data["otp_created_at"])
	if err != nil {
		return nil, fmt.Errorf("otp_created_at: %w", err)
	}
	otp, err := entity.NewOTPCode(data["otp_code"], otpCreatedAt)
	if err != nil {
		return nil, err
	}
	failed, err := strconv.Atoi(data["failed_attempts"])
	if err != nil {
		return nil, fmt.Errorf("failed_attempts: %w", err)
	}
	version, err := strconv.ParseInt(data["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	attempt := &entity.LoginAttempt{
		BaseSimple: entity.BaseSimple{
			ID:        id,
			CreatedAt: createdAt,
		},
		Email:          email,
		OTP:            otp,
		FailedAttempts: failed,
		Version:        version,
	}
	if raw, ok := data["last_failed_at"]; ok && raw != "" {
		lastFailedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("last_failed_at: %w", err)
		}
		attempt.LastFailedAt = &lastFailedAt
	}
	return attempt, nil
}
