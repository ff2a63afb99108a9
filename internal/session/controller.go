// Package session owns the authentication state of the client: the cached
// login on disk and the state machine built on top of it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
	"momentfeed/internal/notify"
	"momentfeed/internal/service"
)

type State string

const (
	StateUnknown         State = "unknown"
	StateRestoring       State = "restoring"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
	StateLoggingIn       State = "logging_in"
	StateLoggingOut      State = "logging_out"
	StateRefreshing      State = "refreshing"
)

// Identity exposes the signed-in user to other controllers.
type Identity interface {
	CurrentUser() *models.User
}

type Snapshot struct {
	State           State
	User            *models.User
	IsAuthenticated bool
	Loading         bool
	LoginError      string
}

type LoginInput struct {
	Account  string `validate:"required"`
	Password string `validate:"required"`
}

type Controller struct {
	store    *Store
	auth     service.AuthService
	validate *validator.Validate
	notifier notify.Notifier
	logger   *slog.Logger
	logins   singleflight.Group

	mu       sync.Mutex
	state    State
	user     *models.User
	loading  bool
	loginErr string
	subs     map[int]func(Snapshot)
	nextSub  int
}

func NewController(store *Store, auth service.AuthService, validate *validator.Validate, notifier notify.Notifier, logger *slog.Logger) *Controller {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		auth:     auth,
		validate: validate,
		notifier: notifier,
		logger:   logger,
		state:    StateUnknown,
		subs:     map[int]func(Snapshot){},
	}
}

// Init restores the cached login. A fresh session is trusted without a
// network call; an expired one gets a single login attempt with the stored
// credentials.
func (c *Controller) Init(ctx context.Context) error {
	c.update(func() {
		c.state = StateRestoring
		c.loading = true
	})

	sess, err := c.store.Load(ctx)
	if err != nil {
		c.finish(StateUnauthenticated, nil, "")
		return err
	}
	if sess == nil {
		c.finish(StateUnauthenticated, nil, "")
		return nil
	}

	if !c.store.expired(sess.LoginTime) {
		c.auth.RestoreCredentials(sess.User, sess.Credentials.Account, sess.Credentials.Password)
		c.logger.Debug("restored cached session", "account", sess.Credentials.Account)
		c.finish(StateAuthenticated, sess.User, "")
		return nil
	}

	c.logger.Info("cached session expired, logging in again", "account", sess.Credentials.Account)
	user, err := c.auth.Login(ctx, sess.Credentials.Account, sess.Credentials.Password)
	if err != nil {
		c.logger.Info("stored credentials rejected", "error", err)
		c.auth.Logout()
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Warn("clear session failed", "error", clearErr)
		}
		c.finish(StateUnauthenticated, nil, "")
		return nil
	}

	c.persist(ctx, user, sess.Credentials)
	c.finish(StateAuthenticated, user, "")
	return nil
}

// Login authenticates and persists the session. Concurrent calls share one
// in-flight attempt and its result.
func (c *Controller) Login(ctx context.Context, account, password string) (*models.User, error) {
	input := LoginInput{Account: account, Password: password}
	if err := c.validate.Struct(input); err != nil {
		c.update(func() { c.loginErr = "请输入账号和密码" })
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	v, err, shared := c.logins.Do("login", func() (any, error) {
		return c.login(ctx, input)
	})
	if shared {
		c.logger.Debug("joined in-flight login")
	}
	if err != nil {
		return nil, err
	}
	return v.(*models.User), nil
}

func (c *Controller) login(ctx context.Context, input LoginInput) (*models.User, error) {
	c.update(func() {
		c.state = StateLoggingIn
		c.loading = true
		c.loginErr = ""
	})

	user, err := c.auth.Login(ctx, input.Account, input.Password)
	if err != nil {
		message := apperrors.UserMessage(err, "登录失败")
		notify.Error(c.notifier, message)
		c.auth.Logout()
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Warn("clear session failed", "error", clearErr)
		}
		c.finish(StateUnauthenticated, nil, message)
		return nil, err
	}

	c.persist(ctx, user, &models.Credentials{Account: input.Account, Password: input.Password})
	c.finish(StateAuthenticated, user, "")
	return user, nil
}

// Logout clears local credentials. It always ends unauthenticated.
func (c *Controller) Logout(ctx context.Context) error {
	c.update(func() { c.state = StateLoggingOut })

	c.auth.Logout()
	err := c.store.Clear(ctx)
	if err != nil {
		c.logger.Warn("clear session failed", "error", err)
	}
	c.finish(StateUnauthenticated, nil, "")
	return err
}

// Refresh re-validates an authenticated session whose cached login has
// expired. A failed validation logs the user out.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateAuthenticated || !c.store.IsExpired(ctx) {
		return nil
	}

	c.update(func() { c.state = StateRefreshing })

	if !c.auth.Validate(ctx) {
		notify.Error(c.notifier, apperrors.UserMessage(apperrors.ErrValidationFailed, ""))
		if err := c.Logout(ctx); err != nil {
			return errors.Join(apperrors.ErrValidationFailed, err)
		}
		return apperrors.ErrValidationFailed
	}

	user := c.auth.CurrentUser()
	sess, err := c.store.Load(ctx)
	if err == nil && sess != nil {
		c.persist(ctx, user, sess.Credentials)
	}
	c.finish(StateAuthenticated, user, "")
	return nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Subscribe registers fn for every state change and returns a function that
// removes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) persist(ctx context.Context, user *models.User, creds *models.Credentials) {
	if user == nil || creds == nil {
		return
	}
	if err := c.store.Save(ctx, models.Session{User: user, Credentials: creds}); err != nil {
		c.logger.Warn("persist session failed", "error", err)
	}
}

func (c *Controller) finish(state State, user *models.User, loginErr string) {
	c.update(func() {
		c.state = state
		c.user = user
		c.loading = false
		c.loginErr = loginErr
	})
}

func (c *Controller) update(mutate func()) {
	c.mu.Lock()
	mutate()
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:           c.state,
		User:            c.user,
		IsAuthenticated: c.state == StateAuthenticated,
		Loading:         c.loading,
		LoginError:      c.loginErr,
	}
}
