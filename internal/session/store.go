package session

import (
	"context"
	"fmt"
	"time"

	"momentfeed/internal/decode"
	"momentfeed/internal/models"
	"momentfeed/internal/repository"
)

const (
	KeyUser        = "auth_user"
	KeyCredentials = "auth_credentials"
	KeyLoginTime   = "auth_login_time"

	DefaultTTL = 24 * time.Hour
)

// Store persists the cached login under three JSON-encoded keys.
type Store struct {
	kv  repository.KeyValueStore
	ttl time.Duration
	now func() time.Time
}

func NewStore(kv repository.KeyValueStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: kv, ttl: ttl, now: time.Now}
}

// Load returns the stored session, or nil when user or credentials are
// missing. A key that fails to decode reads as absent.
func (s *Store) Load(ctx context.Context) (*models.Session, error) {
	user, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	creds, err := s.get(ctx, KeyCredentials)
	if err != nil {
		return nil, err
	}
	loginTime, err := s.get(ctx, KeyLoginTime)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{
		User:        decode.Ptr[models.User](user),
		Credentials: decode.Ptr[models.Credentials](creds),
		LoginTime:   decode.Ptr[time.Time](loginTime),
	}
	if sess.User == nil || sess.Credentials == nil {
		return nil, nil
	}
	return sess, nil
}

// Save writes all three keys. A zero LoginTime is stamped with the current
// time.
func (s *Store) Save(ctx context.Context, sess models.Session) error {
	if sess.User == nil || sess.Credentials == nil {
		return fmt.Errorf("save session: user and credentials are required")
	}
	loginTime := s.now()
	if sess.LoginTime != nil && !sess.LoginTime.IsZero() {
		loginTime = *sess.LoginTime
	}

	values := []struct {
		key   string
		value any
	}{
		{KeyUser, sess.User},
		{KeyCredentials, sess.Credentials},
		{KeyLoginTime, loginTime},
	}
	for _, v := range values {
		encoded, err := decode.Encode(v.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", v.key, err)
		}
		if err := s.kv.Set(ctx, v.key, encoded); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyUser, KeyCredentials, KeyLoginTime); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsExpired reports whether the stored login is older than the TTL. A missing
// or unreadable login time counts as expired.
func (s *Store) IsExpired(ctx context.Context) bool {
	raw, err := s.get(ctx, KeyLoginTime)
	if err != nil {
		return true
	}
	return s.expired(decode.Ptr[time.Time](raw))
}

func (s *Store) expired(loginTime *time.Time) bool {
	if loginTime == nil || loginTime.IsZero() {
		return true
	}
	return s.now().Sub(*loginTime) > s.ttl
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return "", nil
	}
	return value, nil
}
