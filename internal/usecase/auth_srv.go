package usecase

import (
	"context"
	"errors"
	"strings"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/dto/request"
	"otp-auth/internal/dto/response"
	"otp-auth/pkg/apperr"
	"otp-auth/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxVerifyRounds bounds how often Verify-OTP reloads an attempt that changed underneath it.
const maxVerifyRounds = 3

const (
	msgUserNotFound      = "User not found"
	msgNoLoginAttempt    = "No login attempt found"
	msgTooManyAttempts   = "Too many failed attempts. Try again in 30 minutes."
	msgInvalidOTP        = "Invalid or expired OTP code"
	msgInvalidSession    = "Invalid or expired session"
	msgUserAlreadyExists = "User with this email already exists"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.UserResponse, error)
	RequestLogin(ctx context.Context, req *request.LoginRequest) error
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.AuthResponse, error)
	RefreshToken(ctx context.Context, req *request.RefreshTokenRequest) (*response.TokenResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

type authService struct {
	repo       *repository.Repository
	deps       Dependencies
	adminEmail entity.Email
	log        *zap.Logger
}

func NewAuthService(repo *repository.Repository, deps Dependencies, config utils.AuthConfig, log *zap.Logger) AuthService {
	s := &authService{
		repo: repo,
		deps: deps,
		log:  log.With(zap.String("service", "auth")),
	}
	if config.AdminEmail != "" {
		if email, err := entity.NewEmail(config.AdminEmail); err == nil {
			s.adminEmail = email
		} else {
			s.log.Warn("Ignoring malformed admin bootstrap email", zap.String("admin_email", config.AdminEmail))
		}
	}
	return s
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.UserResponse, error) {
	// 1. Validate email
	email, err := entity.NewEmail(req.Email)
	if err != nil {
		return nil, err
	}

	// 2. Reject duplicates
	existing, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to check email", zap.Error(err), zap.String("email", email.String()))
		return nil, apperr.Other("check email", err)
	}
	if existing != nil {
		return nil, apperr.Validation(msgUserAlreadyExists)
	}

	// 3. Create user
	role := entity.RoleUser
	if s.isBootstrapAdmin(email) {
		role = entity.RoleAdmin
	}
	user := entity.NewUser(email, req.Name, role, s.deps.now())
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.log.Error("Failed to create user", zap.Error(err), zap.String("email", email.String()))
		return nil, apperr.Other("create user", err)
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", email.String()),
	)

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *authService) RequestLogin(ctx context.Context, req *request.LoginRequest) error {
	// 1. Validate email
	email, err := entity.NewEmail(req.Email)
	if err != nil {
		return err
	}
	now := s.deps.now()

	// 2. Find user, bootstrapping the configured admin on first login
	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("email", email.String()))
		return apperr.Other("find user", err)
	}
	if user == nil {
		if !s.isBootstrapAdmin(email) {
			s.log.Warn("Login requested for unknown email", zap.String("email", email.String()))
			return apperr.NotFound(msgUserNotFound)
		}
		user = entity.NewUser(email, localPart(email), entity.RoleAdmin, now)
		if err := s.repo.User.Create(ctx, user); err != nil {
			s.log.Error("Failed to bootstrap admin", zap.Error(err), zap.String("email", email.String()))
			return apperr.Other("bootstrap admin", err)
		}
		s.log.Info("Admin user bootstrapped", zap.String("user_id", user.ID.String()))
	}

	// 3. Generate OTP
	code, err := s.deps.OTP.Generate(now)
	if err != nil {
		s.log.Error("Failed to generate OTP", zap.Error(err))
		return apperr.Other("generate otp", err)
	}

	// 4. Replace any pending attempt
	attempt := entity.NewLoginAttempt(email, code)
	if err := s.repo.LoginAttempt.Save(ctx, attempt); err != nil {
		s.log.Error("Failed to save login attempt", zap.Error(err), zap.String("email", email.String()))
		return apperr.Other("save login attempt", err)
	}

	// 5. Deliver
	if err := s.deps.Mailer.SendOTP(ctx, email.String(), code.Value()); err != nil {
		s.log.Error("Failed to send OTP", zap.Error(err), zap.String("email", email.String()))
		return apperr.Other("send otp", err)
	}

	s.log.Info("Login requested", zap.String("email", email.String()))
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.AuthResponse, error) {
	// 1. Validate input
	email, err := entity.NewEmail(req.Email)
	if err != nil {
		return nil, err
	}
	code, err := entity.NewOTPCode(req.Code, s.deps.now())
	if err != nil {
		return nil, err
	}

	// 2. Check the code against the current attempt, reloading when it moved
	for round := 1; ; round++ {
		err = s.checkCode(ctx, email, code)
		if !errors.Is(err, repository.ErrStaleVersion) {
			break
		}
		if round == maxVerifyRounds {
			s.log.Error("Login attempt kept changing during verification",
				zap.String("email", email.String()),
				zap.Int("rounds", round),
			)
			return nil, apperr.Other("verify otp", err)
		}
		s.log.Debug("Retrying OTP verification", zap.String("email", email.String()), zap.Int("round", round))
	}
	if err != nil {
		return nil, err
	}

	// 3. Find user
	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("email", email.String()))
		return nil, apperr.Other("find user", err)
	}
	if user == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}

	// 4. One live session per user
	if err := s.repo.Session.DeleteByUserID(ctx, user.ID); err != nil {
		s.log.Error("Failed to clear sessions", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, apperr.Other("clear sessions", err)
	}

	refreshToken := s.deps.RefreshTokens.Generate()
	session := entity.NewSession(user.ID, refreshToken, s.deps.now())
	if err := s.repo.Session.Save(ctx, session); err != nil {
		s.log.Error("Failed to create session", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, apperr.Other("create session", err)
	}

	// 5. Issue access token
	accessToken, err := s.deps.Tokens.Generate(email.String())
	if err != nil {
		s.log.Error("Failed to sign access token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, apperr.Other("sign access token", err)
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", session.ID.String()),
	)

	return &response.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.String(),
		User:         response.UserToResponse(user),
	}, nil
}

// checkCode runs one verification round. It returns ErrStaleVersion when the
// attempt changed between load and write.
func (s *authService) checkCode(ctx context.Context, email entity.Email, code entity.OTPCode) error {
	now := s.deps.now()

	attempt, err := s.repo.LoginAttempt.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find login attempt", zap.Error(err), zap.String("email", email.String()))
		return apperr.Other("find login attempt", err)
	}
	if attempt == nil {
		return apperr.NotFound(msgNoLoginAttempt)
	}

	if attempt.IsBlocked(now) {
		s.log.Warn("Verification blocked", zap.String("email", email.String()), zap.Int("failed_attempts", attempt.FailedAttempts))
		return apperr.Validation(msgTooManyAttempts)
	}

	if !attempt.VerifyCode(code, now) {
		attempt.RegisterFailedAttempt(now)
		if err := s.repo.LoginAttempt.Save(ctx, attempt); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return err
			}
			s.log.Error("Failed to record failed attempt", zap.Error(err), zap.String("email", email.String()))
			return apperr.Other("record failed attempt", err)
		}
		s.log.Warn("Invalid OTP submitted",
			zap.String("email", email.String()),
			zap.Int("failed_attempts", attempt.FailedAttempts),
		)
		return apperr.Validation(msgInvalidOTP)
	}

	if err := s.repo.LoginAttempt.Consume(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return err
		}
		s.log.Error("Failed to consume login attempt", zap.Error(err), zap.String("email", email.String()))
		return apperr.Other("consume login attempt", err)
	}
	return nil
}

func (s *authService) RefreshToken(ctx context.Context, req *request.RefreshTokenRequest) (*response.TokenResponse, error) {
	// 1. Validate token
	token, err := entity.NewRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	now := s.deps.now()

	// 2. Find live session
	session, err := s.repo.Session.FindByRefreshToken(ctx, token)
	if err != nil {
		s.log.Error("Failed to find session", zap.Error(err))
		return nil, apperr.Other("find session", err)
	}
	if session == nil || session.IsExpired(now) {
		return nil, apperr.Validation(msgInvalidSession)
	}

	// 3. Rotate; a concurrent refresh with the same token loses here
	next := s.deps.RefreshTokens.Generate()
	session.RotateRefreshToken(next)
	session.Touch(now)
	if err := s.repo.Session.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			s.log.Warn("Refresh token reused concurrently", zap.String("session_id", session.ID.String()))
			return nil, apperr.Validation(msgInvalidSession)
		}
		s.log.Error("Failed to rotate refresh token", zap.Error(err), zap.String("session_id", session.ID.String()))
		return nil, apperr.Other("rotate refresh token", err)
	}

	// 4. Resolve the owner
	user, err := s.repo.User.FindByID(ctx, session.UserID)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", session.UserID.String()))
		return nil, apperr.Other("find user", err)
	}
	if user == nil {
		s.log.Warn("Session owner no longer exists", zap.String("user_id", session.UserID.String()))
		if err := s.repo.Session.DeleteByUserID(ctx, session.UserID); err != nil {
			s.log.Error("Failed to delete orphaned session", zap.Error(err), zap.String("user_id", session.UserID.String()))
		}
		return nil, apperr.NotFound(msgUserNotFound)
	}

	// 5. Issue access token
	accessToken, err := s.deps.Tokens.Generate(user.Email.String())
	if err != nil {
		s.log.Error("Failed to sign access token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, apperr.Other("sign access token", err)
	}

	s.log.Info("Session refreshed", zap.String("session_id", session.ID.String()))

	return &response.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: next.String(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Session.DeleteByUserID(ctx, userID); err != nil {
		s.log.Error("Failed to delete sessions", zap.Error(err), zap.String("user_id", userID.String()))
		return apperr.Other("delete sessions", err)
	}

	s.log.Info("User logged out", zap.String("user_id", userID.String()))
	return nil
}

func (s *authService) isBootstrapAdmin(email entity.Email) bool {
	return s.adminEmail != "" && email == s.adminEmail
}

func localPart(email entity.Email) string {
	name, _, _ := strings.Cut(email.String(), "@")
	return name
}
