package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"momentfeed/internal/models"
)

type userRepository struct {
	api Requester
}

type CreateUserRequest struct {
	Account   string          `json:"account" validate:"required,max=64"`
	Password  string          `json:"password" validate:"required,min=6"`
	Name      string          `json:"name" validate:"required,max=64"`
	Role      models.Role     `json:"role,omitempty" validate:"omitempty,oneof=normal admin"`
	ExtraData json.RawMessage `json:"extra_data,omitempty"`
}

type UpdateUserRequest struct {
	Account   *string         `json:"account,omitempty" validate:"omitempty,max=64"`
	Password  *string         `json:"password,omitempty" validate:"omitempty,min=6"`
	Name      *string         `json:"name,omitempty" validate:"omitempty,max=64"`
	Role      *models.Role    `json:"role,omitempty" validate:"omitempty,oneof=normal admin"`
	ExtraData json.RawMessage `json:"extra_data,omitempty"`
}

func NewUserRepository(api Requester) UserRepository {
	return &userRepository{api: api}
}

func (r *userRepository) List(ctx context.Context, page, limit int) (*models.UserPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var out models.UserPage
	if err := r.api.Get(ctx, "/users", params, &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &out, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.api.Get(ctx, userPath(id), nil, &user); err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	var user models.User
	if err := r.api.Post(ctx, "/users", req, &user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id int64, req UpdateUserRequest) (*models.User, error) {
	var user models.User
	if err := r.api.Put(ctx, userPath(id), req, &user); err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return &user, nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	if err := r.api.Delete(ctx, userPath(id), nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

// Me is not wrapped with extra context: callers classify the probe error
// directly.
func (r *userRepository) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := r.api.Get(ctx, "/auth", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}
