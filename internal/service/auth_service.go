package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
	"momentfeed/internal/repository"
)

// Authorizer holds the Basic credentials attached to outgoing requests.
// *api.Client implements it.
type Authorizer interface {
	SetBasicAuth(account, password string)
	ClearAuth()
	HasAuth() bool
}

type AuthService interface {
	SetCredentials(account, password string)
	Login(ctx context.Context, account, password string) (*models.User, error)
	Validate(ctx context.Context) bool
	Logout()
	RestoreCredentials(user *models.User, account, password string)
	CurrentUser() *models.User
	IsAuthenticated() bool
	LoginTime() time.Time
}

type authService struct {
	auth     Authorizer
	userRepo repository.UserRepository
	logger   *slog.Logger
	now      func() time.Time

	mu            sync.RWMutex
	user          *models.User
	authenticated bool
	loginTime     time.Time
}

func NewAuthService(auth Authorizer, userRepo repository.UserRepository, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		auth:     auth,
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *authService) SetCredentials(account, password string) {
	s.auth.SetBasicAuth(account, password)
}

// Login sets the credentials speculatively and probes the auth endpoint.
// Any failure leaves no credentials behind.
func (s *authService) Login(ctx context.Context, account, password string) (*models.User, error) {
	s.SetCredentials(account, password)

	user, err := s.userRepo.Me(ctx)
	if err != nil {
		s.clear()
		if apperrors.IsAuthFailure(err) {
			s.logger.Info("login rejected", "account", account)
			return nil, apperrors.ErrInvalidCredentials
		}
		s.logger.Warn("login failed", "account", account, "error", err)
		return nil, &apperrors.LoginFailedError{Reason: apperrors.Reason(err), Err: err}
	}

	s.mu.Lock()
	s.user = user
	s.authenticated = true
	s.loginTime = s.now()
	s.mu.Unlock()

	s.logger.Info("logged in", "account", account, "user_id", user.ID)
	return user, nil
}

// Validate re-probes the auth endpoint with the current credentials. It never
// returns an error; any failure reads as false.
func (s *authService) Validate(ctx context.Context) bool {
	if !s.auth.HasAuth() {
		return false
	}
	user, err := s.userRepo.Me(ctx)
	if err != nil {
		s.logger.Debug("session validation failed", "error", err)
		return false
	}

	s.mu.Lock()
	s.user = user
	s.authenticated = true
	s.mu.Unlock()
	return true
}

func (s *authService) Logout() {
	s.clear()
}

// RestoreCredentials re-attaches a cached login without a network probe.
// The service only counts as authenticated when the cached user comes along.
func (s *authService) RestoreCredentials(user *models.User, account, password string) {
	s.SetCredentials(account, password)
	s.mu.Lock()
	s.user = user
	s.authenticated = user != nil
	s.mu.Unlock()
}

func (s *authService) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *authService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *authService) LoginTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loginTime
}

func (s *authService) clear() {
	s.auth.ClearAuth()
	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.loginTime = time.Time{}
	s.mu.Unlock()
}
