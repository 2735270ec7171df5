package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/pkg/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// loginAttemptStores returns every LoginAttemptRepository that can run here.
// The Redis store joins when REDIS_URL points at a disposable instance.
func loginAttemptStores(t *testing.T) map[string]LoginAttemptRepository {
	t.Helper()
	stores := map[string]LoginAttemptRepository{
		"memory": NewMemoryLoginAttemptRepository(),
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		client, err := cache.Connect(context.Background(), url)
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		stores["redis"] = NewRedisLoginAttemptRepository(client, zap.NewNop())
	}

	return stores
}

func uniqueEmail(t *testing.T) entity.Email {
	t.Helper()
	email, err := entity.NewEmail(uuid.NewString() + "@test.com")
	require.NoError(t, err)
	return email
}

func TestLoginAttemptStoreContract(t *testing.T) {
	for name, store := range loginAttemptStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			email := uniqueEmail(t)
			now := time.Now().UTC().Truncate(time.Millisecond)

			found, err := store.FindByEmail(ctx, email)
			require.NoError(t, err)
			assert.Nil(t, found)

			code, _ := entity.NewOTPCode("111111", now)
			first := entity.NewLoginAttempt(email, code)
			require.NoError(t, store.Save(ctx, first))
			require.NotZero(t, first.Version)

			// Two writers load the same generation.
			a, err := store.FindByEmail(ctx, email)
			require.NoError(t, err)
			b, err := store.FindByEmail(ctx, email)
			require.NoError(t, err)
			assert.Equal(t, "111111", a.OTP.Value())
			assert.Equal(t, first.Version, a.Version)

			a.RegisterFailedAttempt(now)
			require.NoError(t, store.Save(ctx, a))

			b.RegisterFailedAttempt(now)
			assert.ErrorIs(t, store.Save(ctx, b), ErrStaleVersion)

			reloaded, err := store.FindByEmail(ctx, email)
			require.NoError(t, err)
			assert.Equal(t, 1, reloaded.FailedAttempts)
			require.NotNil(t, reloaded.LastFailedAt)
			assert.True(t, now.Equal(*reloaded.LastFailedAt))

			// A new login request replaces the attempt; holders of the old one go stale.
			code2, _ := entity.NewOTPCode("222222", now)
			second := entity.NewLoginAttempt(email, code2)
			require.NoError(t, store.Save(ctx, second))
			assert.Greater(t, second.Version, reloaded.Version)
			assert.ErrorIs(t, store.Consume(ctx, reloaded), ErrStaleVersion)

			current, err := store.FindByEmail(ctx, email)
			require.NoError(t, err)
			assert.Equal(t, "222222", current.OTP.Value())
			assert.Equal(t, 0, current.FailedAttempts)
			assert.Nil(t, current.LastFailedAt)

			require.NoError(t, store.Consume(ctx, current))
			assert.ErrorIs(t, store.Consume(ctx, current), ErrStaleVersion)

			found, err = store.FindByEmail(ctx, email)
			require.NoError(t, err)
			assert.Nil(t, found)

			require.NoError(t, store.DeleteByEmail(ctx, email), "deleting a missing attempt is a no-op")
		})
	}
}

func TestMemorySessionRepositoryRotation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()
	userID := uuid.New()

	session := entity.NewSession(userID, entity.RefreshToken("rt-1"), time.Now())
	require.NoError(t, repo.Save(ctx, session))

	loaded, err := repo.FindByRefreshToken(ctx, entity.RefreshToken("rt-1"))
	require.NoError(t, err)
	require.NotNil(t, loaded)

	stale := loaded.Clone()

	loaded.RotateRefreshToken(entity.RefreshToken("rt-2"))
	require.NoError(t, repo.Save(ctx, loaded))

	old, err := repo.FindByRefreshToken(ctx, entity.RefreshToken("rt-1"))
	require.NoError(t, err)
	assert.Nil(t, old, "rotated token must not resolve")

	stale.RotateRefreshToken(entity.RefreshToken("rt-3"))
	assert.ErrorIs(t, repo.Save(ctx, stale), ErrStaleVersion)

	current, err := repo.FindByRefreshToken(ctx, entity.RefreshToken("rt-2"))
	require.NoError(t, err)
	assert.Equal(t, session.ID, current.ID)

	byUser, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, byUser.ID)
	assert.Empty(t, byUser.RefreshToken)

	require.NoError(t, repo.DeleteByRefreshToken(ctx, entity.RefreshToken("rt-2")))
	byUser, err = repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, byUser)
}

func TestMemoryUserRepositoryPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	base := time.Now()

	for i := 0; i < 5; i++ {
		u := entity.NewUser(uniqueEmail(t), "user", entity.RoleUser, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Create(ctx, u))
	}

	page, err := repo.FindAll(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, err := repo.FindAll(ctx, 10, 4)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	require.NoError(t, repo.Delete(ctx, page[0].ID))
	count, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	gone, err := repo.FindByID(ctx, page[0].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.ErrorIs(t, repo.Delete(ctx, page[0].ID), ErrNotFound)
}
