package usecase

import (
	"context"
	"errors"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/dto/request"
	"otp-auth/internal/dto/response"
	"otp-auth/pkg/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgCreatorNotFound = "Creator not found"
	msgAdminsOnly      = "Only admins can create users"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error)
	ListUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error)
	CreateUser(ctx context.Context, creatorID uuid.UUID, req *request.CreateUserRequest) (*response.UserResponse, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, req *request.UpdateUserRequest) (*response.UserResponse, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	// GetOrCreateUser returns the user for email, creating it when absent.
	GetOrCreateUser(ctx context.Context, req *request.WebhookUserRequest) (*response.UserResponse, bool, error)
}

type userService struct {
	repo *repository.Repository
	deps Dependencies
	log  *zap.Logger
}

func NewUserService(repo *repository.Repository, deps Dependencies, log *zap.Logger) UserService {
	return &userService{
		repo: repo,
		deps: deps,
		log:  log.With(zap.String("service", "user")),
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := us.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error) {
	return us.rename(ctx, userID, req.Name)
}

func (us *userService) UpdateUser(ctx context.Context, userID uuid.UUID, req *request.UpdateUserRequest) (*response.UserResponse, error) {
	return us.rename(ctx, userID, req.Name)
}

func (us *userService) rename(ctx context.Context, userID uuid.UUID, name string) (*response.UserResponse, error) {
	// 1. Reject blank names before touching storage
	if _, err := entity.ValidateName(name); err != nil {
		return nil, err
	}

	// 2. Load and update
	user, err := us.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.Rename(name, us.deps.now()); err != nil {
		return nil, err
	}

	if err := us.repo.User.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		us.log.Error("Failed to update user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, apperr.Other("update user", err)
	}

	us.log.Info("User renamed", zap.String("user_id", userID.String()))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) ListUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	req.Normalize()

	users, err := us.repo.User.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		us.log.Error("Failed to list users", zap.Error(err), zap.Int("page", req.Page))
		return nil, apperr.Other("list users", err)
	}

	total, err := us.repo.User.CountAll(ctx)
	if err != nil {
		us.log.Error("Failed to count users", zap.Error(err))
		return nil, apperr.Other("count users", err)
	}

	return response.NewPaginatedResponse(response.UsersToResponse(users), req.Page, req.PerPage, total), nil
}

func (us *userService) CreateUser(ctx context.Context, creatorID uuid.UUID, req *request.CreateUserRequest) (*response.UserResponse, error) {
	// 1. Only admins create users
	creator, err := us.repo.User.FindByID(ctx, creatorID)
	if err != nil {
		us.log.Error("Failed to find creator", zap.Error(err), zap.String("creator_id", creatorID.String()))
		return nil, apperr.Other("find creator", err)
	}
	if creator == nil {
		return nil, apperr.NotFound(msgCreatorNotFound)
	}
	if !creator.IsAdmin() {
		us.log.Warn("Non-admin tried to create a user", zap.String("creator_id", creatorID.String()))
		return nil, apperr.Validation(msgAdminsOnly)
	}

	// 2. Validate email and reject duplicates
	email, err := entity.NewEmail(req.Email)
	if err != nil {
		return nil, err
	}
	existing, err := us.repo.User.FindByEmail(ctx, email)
	if err != nil {
		us.log.Error("Failed to check email", zap.Error(err), zap.String("email", email.String()))
		return nil, apperr.Other("check email", err)
	}
	if existing != nil {
		return nil, apperr.Validation(msgUserAlreadyExists)
	}

	// 3. Save
	user := entity.NewUser(email, req.Name, entity.UserRole(req.Role), us.deps.now())
	if err := us.repo.User.Create(ctx, user); err != nil {
		us.log.Error("Failed to create user", zap.Error(err), zap.String("email", email.String()))
		return nil, apperr.Other("create user", err)
	}

	us.log.Info("User created by admin",
		zap.String("user_id", user.ID.String()),
		zap.String("creator_id", creatorID.String()),
		zap.String("role", string(user.Role)),
	)

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (us *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := us.repo.User.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgUserNotFound)
		}
		us.log.Error("Failed to delete user", zap.Error(err), zap.String("user_id", userID.String()))
		return apperr.Other("delete user", err)
	}

	// A deleted user keeps no live session.
	if err := us.repo.Session.DeleteByUserID(ctx, userID); err != nil {
		us.log.Error("Failed to delete sessions of deleted user", zap.Error(err), zap.String("user_id", userID.String()))
		return apperr.Other("delete sessions", err)
	}

	us.log.Info("User deleted", zap.String("user_id", userID.String()))
	return nil
}

func (us *userService) GetOrCreateUser(ctx context.Context, req *request.WebhookUserRequest) (*response.UserResponse, bool, error) {
	email, err := entity.NewEmail(req.Email)
	if err != nil {
		return nil, false, err
	}

	existing, err := us.repo.User.FindByEmail(ctx, email)
	if err != nil {
		us.log.Error("Failed to check email", zap.Error(err), zap.String("email", email.String()))
		return nil, false, apperr.Other("check email", err)
	}
	if existing != nil {
		resp := response.UserToResponse(existing)
		return &resp, false, nil
	}

	user := entity.NewUser(email, req.Name, entity.RoleUser, us.deps.now())
	if err := us.repo.User.Create(ctx, user); err != nil {
		us.log.Error("Failed to create user from webhook", zap.Error(err), zap.String("email", email.String()))
		return nil, false, apperr.Other("create user", err)
	}

	us.log.Info("User created from webhook", zap.String("user_id", user.ID.String()))

	resp := response.UserToResponse(user)
	return &resp, true, nil
}

func (us *userService) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := us.repo.User.FindByID(ctx, userID)
	if err != nil {
		us.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, apperr.Other("find user", err)
	}
	if user == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	return user, nil
}
