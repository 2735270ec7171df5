package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/dto/request"
	"otp-auth/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, h *harness, email string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: email}))
	resp, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: email, Code: testOTP})
	require.NoError(t, err)
	return resp.RefreshToken
}

func TestRequestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("sends code to known user", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)

		err := h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "  Alice@Test.com "})
		require.NoError(t, err)
		assert.Equal(t, testOTP, h.mailer.last("alice@test.com"))

		attempt := h.attempt(t, "alice@test.com")
		require.NotNil(t, attempt)
		assert.Equal(t, 0, attempt.FailedAttempts)
	})

	t.Run("unknown email", func(t *testing.T) {
		h := newHarness(t)
		err := h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "ghost@test.com"})
		assert.True(t, apperr.IsNotFound(err))
		assert.Equal(t, "User not found", apperr.MessageOf(err))
		assert.Empty(t, h.mailer.last("ghost@test.com"))
	})

	t.Run("malformed email", func(t *testing.T) {
		h := newHarness(t)
		err := h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "not-an-email"})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "Invalid email format", apperr.MessageOf(err))
	})

	t.Run("bootstraps configured admin", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "root@test.com"}))

		user, err := h.repo.User.FindByEmail(ctx, entity.Email("root@test.com"))
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.True(t, user.IsAdmin())
		assert.Equal(t, "root", user.Name)
	})

	t.Run("delivery failure fails the call", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		h.mailer.err = errDelivery

		err := h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindOther, apperr.KindOf(err))
		assert.ErrorIs(t, err, errDelivery)
	})

	t.Run("new request resets failures", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))
		_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: wrongOTP})
		require.Error(t, err)

		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))
		assert.Equal(t, 0, h.attempt(t, "alice@test.com").FailedAttempts)
	})
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds once then no attempt", func(t *testing.T) {
		h := newHarness(t)
		user := h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))

		resp, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: testOTP})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, user.ID.String(), resp.User.ID)
		assert.Equal(t, "Alice", resp.User.Name)

		email, err := h.tokens.Verify(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice@test.com", email)

		_, err = h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: testOTP})
		assert.True(t, apperr.IsNotFound(err))
		assert.Equal(t, "No login attempt found", apperr.MessageOf(err))
	})

	t.Run("malformed code", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: "12ab56"})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "Invalid OTP code format", apperr.MessageOf(err))
	})

	t.Run("wrong code counts a failure", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))

		_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: wrongOTP})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "Invalid or expired OTP code", apperr.MessageOf(err))
		assert.Equal(t, 1, h.attempt(t, "alice@test.com").FailedAttempts)
	})

	t.Run("expired code fails", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))
		h.clock.Advance(5*time.Minute + time.Second)

		_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: testOTP})
		assert.Equal(t, "Invalid or expired OTP code", apperr.MessageOf(err))
	})

	t.Run("five wrong codes lock the correct sixth", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))

		for i := 0; i < entity.MaxFailedAttempts; i++ {
			_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: wrongOTP})
			require.Equal(t, "Invalid or expired OTP code", apperr.MessageOf(err))
		}

		_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: testOTP})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "Too many failed attempts. Try again in 30 minutes.", apperr.MessageOf(err))
		assert.Equal(t, entity.MaxFailedAttempts, h.attempt(t, "alice@test.com").FailedAttempts, "blocked checks do not count")
	})

	t.Run("lockout lapses and the counter restarts at one", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))
		for i := 0; i < entity.MaxFailedAttempts; i++ {
			_, _ = h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: wrongOTP})
		}

		h.clock.Advance(entity.LockoutWindow)

		_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: wrongOTP})
		assert.Equal(t, "Invalid or expired OTP code", apperr.MessageOf(err))
		assert.Equal(t, 1, h.attempt(t, "alice@test.com").FailedAttempts)
	})

	t.Run("second login invalidates the first session", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)

		first := login(t, h, "alice@test.com")
		second := login(t, h, "alice@test.com")
		assert.NotEqual(t, first, second)

		_, err := h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: first})
		assert.Equal(t, "Invalid or expired session", apperr.MessageOf(err))

		_, err = h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: second})
		assert.NoError(t, err)
	})
}

func TestVerifyOTPConcurrentFailuresAreCounted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
	require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))

	const workers = 4
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: wrongOTP})
			if apperr.MessageOf(err) == "Invalid or expired OTP code" {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Positive(t, rejected)
	assert.Equal(t, rejected, h.attempt(t, "alice@test.com").FailedAttempts, "every reported failure is persisted")
}

func TestVerifyOTPConcurrentSuccessHasOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
	require.NoError(t, h.svc.Auth.RequestLogin(ctx, &request.LoginRequest{Email: "alice@test.com"}))

	const workers = 8
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = h.svc.Auth.VerifyOTP(ctx, &request.VerifyOTPRequest{Email: "alice@test.com", Code: testOTP})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.Equal(t, "No login attempt found", apperr.MessageOf(err))
	}
	assert.Equal(t, 1, winners)
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates and reuse fails", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		original := login(t, h, "alice@test.com")

		resp, err := h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: original})
		require.NoError(t, err)
		assert.NotEqual(t, original, resp.RefreshToken)
		assert.NotEmpty(t, resp.AccessToken)

		_, err = h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: original})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "Invalid or expired session", apperr.MessageOf(err))
	})

	t.Run("rotation keeps the absolute expiry", func(t *testing.T) {
		h := newHarness(t)
		user := h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		token := login(t, h, "alice@test.com")

		before, err := h.repo.Session.FindByUserID(ctx, user.ID)
		require.NoError(t, err)

		h.clock.Advance(24 * time.Hour)
		_, err = h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: token})
		require.NoError(t, err)

		after, err := h.repo.Session.FindByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, before.ExpiresAt, after.ExpiresAt)
		assert.Equal(t, h.clock.Now(), after.LastActivityAt)
	})

	t.Run("empty token", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: "  "})
		assert.Equal(t, "RefreshToken cannot be empty", apperr.MessageOf(err))
	})

	t.Run("session older than seven days", func(t *testing.T) {
		h := newHarness(t)
		h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		token := login(t, h, "alice@test.com")

		h.clock.Advance(8 * 24 * time.Hour)
		_, err := h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: token})
		assert.True(t, apperr.IsValidation(err))
		assert.Equal(t, "Invalid or expired session", apperr.MessageOf(err))
	})

	t.Run("missing user drops the session", func(t *testing.T) {
		h := newHarness(t)
		user := h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		token := login(t, h, "alice@test.com")
		require.NoError(t, h.repo.User.Delete(ctx, user.ID))

		_, err := h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: token})
		assert.True(t, apperr.IsNotFound(err))
		assert.Equal(t, "User not found", apperr.MessageOf(err))

		session, err := h.repo.Session.FindByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestRefreshTokenConcurrentReuseHasOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
	token := login(t, h, "alice@test.com")

	const workers = 8
	results := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: token})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.Equal(t, "Invalid or expired session", apperr.MessageOf(err))
	}
	assert.Equal(t, 1, winners)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the session", func(t *testing.T) {
		h := newHarness(t)
		user := h.seedUser(t, "alice@test.com", "Alice", entity.RoleUser)
		token := login(t, h, "alice@test.com")

		require.NoError(t, h.svc.Auth.Logout(ctx, user.ID))

		_, err := h.svc.Auth.RefreshToken(ctx, &request.RefreshTokenRequest{RefreshToken: token})
		assert.Equal(t, "Invalid or expired session", apperr.MessageOf(err))
	})

	t.Run("without session is a no-op", func(t *testing.T) {
		h := newHarness(t)
		assert.NoError(t, h.svc.Auth.Logout(ctx, uuid.New()))
	})
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.svc.Auth.Register(ctx, &request.RegisterRequest{Email: "bob@test.com", Name: " Bob "})
	require.NoError(t, err)
	assert.Equal(t, "bob@test.com", resp.Email)
	assert.Equal(t, "Bob", resp.Name)
	assert.Equal(t, entity.RoleUser, resp.Role)

	_, err = h.svc.Auth.Register(ctx, &request.RegisterRequest{Email: "BOB@test.com", Name: "Bobby"})
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "User with this email already exists", apperr.MessageOf(err))
}
