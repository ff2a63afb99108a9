package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
	"momentfeed/internal/repository"
	"momentfeed/internal/repository/mocks"
)

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		req     repository.CreateUserRequest
		wantErr bool
	}{
		{
			name: "valid defaults role",
			req:  repository.CreateUserRequest{Account: "carol", Password: "secret1", Name: "Carol"},
		},
		{
			name:    "missing account",
			req:     repository.CreateUserRequest{Password: "secret1", Name: "Carol"},
			wantErr: true,
		},
		{
			name:    "unknown role",
			req:     repository.CreateUserRequest{Account: "carol", Password: "secret1", Name: "Carol", Role: "root"},
			wantErr: true,
		},
		{
			name:    "short password",
			req:     repository.CreateUserRequest{Account: "carol", Password: "123", Name: "Carol"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockUserRepository)
			svc := NewUserService(repo, nil, nil)

			if tt.wantErr {
				_, err := svc.Create(ctx, tt.req)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}

			repo.On("Create", mock.Anything, mock.MatchedBy(func(req repository.CreateUserRequest) bool {
				return req.Role == models.RoleNormal
			})).Return(&models.User{ID: 3, Account: "carol"}, nil)

			user, err := svc.Create(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, int64(3), user.ID)
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_TargetsMustBePositive(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockUserRepository)
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Get(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTarget)
	_, err = svc.Update(ctx, -1, repository.UpdateUserRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTarget)
	assert.ErrorIs(t, svc.Delete(ctx, 0), apperrors.ErrInvalidTarget)

	repo.AssertExpectations(t)
}

func TestUserService_ListNormalisesPaging(t *testing.T) {
	repo := new(mocks.MockUserRepository)
	repo.On("List", mock.Anything, 1, 10).Return(&models.UserPage{}, nil)
	svc := NewUserService(repo, nil, nil)

	_, err := svc.List(context.Background(), 0, 0)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
