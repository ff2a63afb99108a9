package service

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"momentfeed/internal/repository"
)

type Service struct {
	Auth AuthService
	User UserService
}

func NewService(rep *repository.Repository, auth Authorizer, validate *validator.Validate, logger *slog.Logger) *Service {
	return &Service{
		Auth: NewAuthService(auth, rep.User, logger),
		User: NewUserService(rep.User, validate, logger),
	}
}
