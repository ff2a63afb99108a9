package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SQLKV stores session values in the session_kv table so several client
// processes can share one cached login.
type SQLKV struct {
	db *sqlx.DB
}

func NewSQLKV(db *sqlx.DB) *SQLKV {
	return &SQLKV{db: db}
}

func (r *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string

	query := `SELECT value FROM session_kv WHERE key = $1`

	err := r.db.GetContext(ctx, &value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read session key %s: %w", key, err)
	}

	return value, true, nil
}

func (r *SQLKV) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO session_kv (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write session key %s: %w", key, err)
	}

	return nil
}

func (r *SQLKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query := `DELETE FROM session_kv WHERE key = ANY($1)`

	_, err := r.db.ExecContext(ctx, query, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}

	return nil
}
