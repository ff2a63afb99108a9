package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
	"momentfeed/internal/repository"
)

type UserService interface {
	List(ctx context.Context, page, limit int) (*models.UserPage, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, req repository.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, id int64, req repository.UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	userRepo repository.UserRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, validate *validator.Validate, logger *slog.Logger) UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		userRepo: userRepo,
		validate: validate,
		logger:   logger,
	}
}

func (s *userService) List(ctx context.Context, page, limit int) (*models.UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.userRepo.List(ctx, page, limit)
}

func (s *userService) Get(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, apperrors.ErrInvalidTarget
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) Create(ctx context.Context, req repository.CreateUserRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if req.Role == "" {
		req.Role = models.RoleNormal
	}

	user, err := s.userRepo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", user.ID, "account", user.Account)
	return user, nil
}

func (s *userService) Update(ctx context.Context, id int64, req repository.UpdateUserRequest) (*models.User, error) {
	if id <= 0 {
		return nil, apperrors.ErrInvalidTarget
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return s.userRepo.Update(ctx, id, req)
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.ErrInvalidTarget
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}
