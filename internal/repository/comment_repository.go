package repository

import (
	"context"
	"fmt"
	"strconv"

	"momentfeed/internal/models"
)

type commentRepository struct {
	api Requester
}

func NewCommentRepository(api Requester) CommentRepository {
	return &commentRepository{api: api}
}

func (r *commentRepository) List(ctx context.Context, postID int64) ([]models.Comment, error) {
	var out []models.Comment
	if err := r.api.Get(ctx, commentsPath(postID), nil, &out); err != nil {
		return nil, fmt.Errorf("list comments of record %d: %w", postID, err)
	}
	return out, nil
}

func (r *commentRepository) Create(ctx context.Context, postID int64, req models.CreateCommentRequest) (*models.Comment, error) {
	var out models.Comment
	if err := r.api.Post(ctx, commentsPath(postID), req, &out); err != nil {
		return nil, fmt.Errorf("create comment on record %d: %w", postID, err)
	}
	if out.PostID == 0 {
		out.PostID = postID
	}
	return &out, nil
}

func (r *commentRepository) Delete(ctx context.Context, postID, commentID int64) error {
	endpoint := commentsPath(postID) + "/" + strconv.FormatInt(commentID, 10)
	if err := r.api.Delete(ctx, endpoint, nil); err != nil {
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	return nil
}

func commentsPath(postID int64) string {
	return recordPath(postID) + "/comments"
}
