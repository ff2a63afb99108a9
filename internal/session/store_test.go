package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"momentfeed/internal/models"
	"momentfeed/internal/repository/mocks"
)

func newTestStore(now time.Time) (*Store, *mocks.MemoryKV) {
	kv := mocks.NewMemoryKV()
	store := NewStore(kv, 0)
	store.now = func() time.Time { return now }
	return store, kv
}

func TestStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store, kv := newTestStore(now)

	err := store.Save(ctx, models.Session{
		User:        &models.User{ID: 1, Account: "alice", Role: models.RoleAdmin},
		Credentials: &models.Credentials{Account: "alice", Password: "pw"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, kv.Len())

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, int64(1), sess.User.ID)
	assert.Equal(t, "pw", sess.Credentials.Password)
	require.NotNil(t, sess.LoginTime)
	assert.True(t, now.Equal(*sess.LoginTime))
	assert.False(t, store.IsExpired(ctx))

	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, 0, kv.Len())
	sess, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStore_Load(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		values    map[string]string
		wantNil   bool
		wantLogin bool
	}{
		{
			name:    "empty",
			values:  map[string]string{},
			wantNil: true,
		},
		{
			name: "corrupt user is no session",
			values: map[string]string{
				KeyUser:        "{broken",
				KeyCredentials: `{"account":"a","password":"b"}`,
			},
			wantNil: true,
		},
		{
			name: "missing credentials is no session",
			values: map[string]string{
				KeyUser: `{"id":1}`,
			},
			wantNil: true,
		},
		{
			name: "corrupt login time reads as absent",
			values: map[string]string{
				KeyUser:        `{"id":1}`,
				KeyCredentials: `{"account":"a","password":"b"}`,
				KeyLoginTime:   `yesterday`,
			},
		},
		{
			name: "complete",
			values: map[string]string{
				KeyUser:        `{"id":1}`,
				KeyCredentials: `{"account":"a","password":"b"}`,
				KeyLoginTime:   `"2025-05-01T12:00:00Z"`,
			},
			wantLogin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, kv := newTestStore(time.Now())
			kv.Values = tt.values

			sess, err := store.Load(ctx)

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, sess)
				return
			}
			require.NotNil(t, sess)
			assert.Equal(t, tt.wantLogin, sess.LoginTime != nil)
		})
	}
}

func TestStore_IsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		loginTime string
		want      bool
	}{
		{"missing", "", true},
		{"unreadable", "not-a-time", true},
		{"one hour old", `"2025-05-02T11:00:00Z"`, false},
		{"exactly a day", `"2025-05-01T12:00:00Z"`, false},
		{"25 hours old", `"2025-05-01T11:00:00Z"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, kv := newTestStore(now)
			if tt.loginTime != "" {
				kv.Values[KeyLoginTime] = tt.loginTime
			}
			assert.Equal(t, tt.want, store.IsExpired(ctx))
		})
	}
}

func TestStore_SaveRequiresUserAndCredentials(t *testing.T) {
	store, kv := newTestStore(time.Now())

	err := store.Save(context.Background(), models.Session{User: &models.User{ID: 1}})

	assert.Error(t, err)
	assert.Equal(t, 0, kv.Len())
}
