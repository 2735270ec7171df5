package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/provider"
	"otp-auth/pkg/security"
	"otp-auth/pkg/utils"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testOTP    = "123456"
	wrongOTP   = "654321"
	testSecret = "test-secret-0123456789"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (m *fakeMailer) SendOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[email] = code
	return nil
}

func (m *fakeMailer) last(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[email]
}

type harness struct {
	repo   *repository.Repository
	svc    *Service
	mailer *fakeMailer
	clock  *testClock
	tokens *security.JWTService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	otp, err := provider.NewFixedOTPGenerator(testOTP)
	require.NoError(t, err)

	clock := newTestClock()
	tokens := security.NewJWTService(testSecret, time.Hour, "otp-auth").WithClock(clock.Now)
	mailer := &fakeMailer{}
	repo := repository.NewMemoryRepository()

	config := &utils.Config{Auth: utils.AuthConfig{AdminEmail: "Root@Test.com"}}
	deps := Dependencies{
		Mailer:        mailer,
		OTP:           otp,
		Tokens:        tokens,
		RefreshTokens: provider.NewUUIDRefreshTokenGenerator(),
		Clock:         clock.Now,
	}

	return &harness{
		repo:   repo,
		svc:    NewService(repo, deps, config, zap.NewNop()),
		mailer: mailer,
		clock:  clock,
		tokens: tokens,
	}
}

func (h *harness) seedUser(t *testing.T, email, name string, role entity.UserRole) *entity.User {
	t.Helper()
	addr, err := entity.NewEmail(email)
	require.NoError(t, err)
	user := entity.NewUser(addr, name, role, h.clock.Now())
	require.NoError(t, h.repo.User.Create(context.Background(), user))
	return user
}

func (h *harness) attempt(t *testing.T, email string) *entity.LoginAttempt {
	t.Helper()
	attempt, err := h.repo.LoginAttempt.FindByEmail(context.Background(), entity.Email(email))
	require.NoError(t, err)
	return attempt
}

var errDelivery = errors.New("smtp unavailable")
