package repository

import (
	"context"
	"net/url"

	"momentfeed/internal/models"
)

// Requester is the remote API primitive the repositories are built on.
// *api.Client implements it.
type Requester interface {
	Get(ctx context.Context, endpoint string, params url.Values, out any) error
	Post(ctx context.Context, endpoint string, body, out any) error
	Put(ctx context.Context, endpoint string, body, out any) error
	Delete(ctx context.Context, endpoint string, out any) error
}

// KeyValueStore is durable local storage for JSON-encoded values. A missing
// key reads as ("", false, nil).
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type RecordRepository interface {
	List(ctx context.Context, page, limit int) (*models.RecordPage, error)
	GetByID(ctx context.Context, id int64) (*models.Record, error)
	Create(ctx context.Context, req models.CreateRecordRequest) (*models.Record, error)
	Update(ctx context.Context, id int64, req models.UpdateRecordRequest) (*models.Record, error)
	Delete(ctx context.Context, id int64) error
}

type UserRepository interface {
	List(ctx context.Context, page, limit int) (*models.UserPage, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, req CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, id int64, req UpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	// Me calls the auth probe and returns the authenticated principal.
	Me(ctx context.Context) (*models.User, error)
}

type CommentRepository interface {
	List(ctx context.Context, postID int64) ([]models.Comment, error)
	Create(ctx context.Context, postID int64, req models.CreateCommentRequest) (*models.Comment, error)
	Delete(ctx context.Context, postID, commentID int64) error
}

type Repository struct {
	Record  RecordRepository
	User    UserRepository
	Comment CommentRepository
	Session KeyValueStore
}

func NewRepository(api Requester, kv KeyValueStore) *Repository {
	return &Repository{
		Record:  NewRecordRepository(api),
		User:    NewUserRepository(api),
		Comment: NewCommentRepository(api),
		Session: kv,
	}
}
