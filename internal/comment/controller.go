// Package comment manages the comment thread of a post.
package comment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
	"momentfeed/internal/notify"
	"momentfeed/internal/repository"
	"momentfeed/internal/session"
	"momentfeed/internal/timeago"
)

type Controller struct {
	comments repository.CommentRepository
	identity session.Identity
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
	location *time.Location

	mu     sync.Mutex
	lists  map[int64][]models.Comment
	drafts map[int64]string
}

func NewController(comments repository.CommentRepository, identity session.Identity, notifier notify.Notifier, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		comments: comments,
		identity: identity,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		location: time.Local,
		lists:    map[int64][]models.Comment{},
		drafts:   map[int64]string{},
	}
}

// Load fetches the thread of a post. Entries without an id or content are
// dropped.
func (c *Controller) Load(ctx context.Context, postID int64) ([]models.Comment, error) {
	if postID <= 0 {
		return nil, apperrors.ErrInvalidTarget
	}

	fetched, err := c.comments.List(ctx, postID)
	if err != nil {
		c.logger.Warn("load comments failed", "post_id", postID, "error", err)
		notify.Error(c.notifier, apperrors.UserMessage(err, "加载评论失败"))
		return nil, err
	}

	valid := make([]models.Comment, 0, len(fetched))
	for _, cm := range fetched {
		if cm.ID == 0 || strings.TrimSpace(cm.Content) == "" {
			continue
		}
		if cm.PostID == 0 {
			cm.PostID = postID
		}
		valid = append(valid, cm)
	}

	c.mu.Lock()
	c.lists[postID] = valid
	c.mu.Unlock()
	return append([]models.Comment{}, valid...), nil
}

func (c *Controller) Comments(postID int64) []models.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Comment{}, c.lists[postID]...)
}

func (c *Controller) SetDraft(postID int64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" {
		delete(c.drafts, postID)
		return
	}
	c.drafts[postID] = text
}

func (c *Controller) Draft(postID int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[postID]
}

// Submit posts a comment. Blank text is rejected before any request is made.
func (c *Controller) Submit(ctx context.Context, postID int64, text string) (*models.Comment, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		notify.Error(c.notifier, "请输入评论内容")
		return nil, apperrors.ErrEmptyContent
	}
	if postID <= 0 {
		notify.Error(c.notifier, apperrors.UserMessage(apperrors.ErrInvalidTarget, ""))
		return nil, apperrors.ErrInvalidTarget
	}

	created, err := c.comments.Create(ctx, postID, models.CreateCommentRequest{Content: content})
	if err != nil {
		c.logger.Warn("submit comment failed", "post_id", postID, "error", err)
		notify.Error(c.notifier, serverMessage(err, "评论失败，请重试"))
		return nil, err
	}

	c.fillAuthor(created, postID, content)

	c.mu.Lock()
	c.lists[postID] = append(c.lists[postID], *created)
	delete(c.drafts, postID)
	c.mu.Unlock()

	notify.Success(c.notifier, "评论成功")
	return created, nil
}

// Delete removes a comment. Only its author or an admin may do so.
func (c *Controller) Delete(ctx context.Context, postID, commentID int64) error {
	c.mu.Lock()
	target, ok := find(c.lists[postID], commentID)
	c.mu.Unlock()
	if !ok {
		return apperrors.ErrInvalidTarget
	}
	if !c.CanDelete(target) {
		notify.Error(c.notifier, apperrors.UserMessage(apperrors.ErrUnauthorized, ""))
		return apperrors.ErrUnauthorized
	}

	if err := c.comments.Delete(ctx, postID, commentID); err != nil {
		c.logger.Warn("delete comment failed", "post_id", postID, "comment_id", commentID, "error", err)
		notify.Error(c.notifier, serverMessage(err, "删除失败，请重试"))
		return err
	}

	c.mu.Lock()
	list := c.lists[postID]
	for i := range list {
		if list[i].ID == commentID {
			c.lists[postID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	notify.Success(c.notifier, "删除成功")
	return nil
}

func (c *Controller) CanDelete(cm models.Comment) bool {
	user := c.identity.CurrentUser()
	if user == nil {
		return false
	}
	return user.ID == cm.UserID || user.IsAdmin()
}

// Label renders the comment time with minute granularity.
func (c *Controller) Label(cm models.Comment) string {
	t, ok := timeago.Parse(cm.Timestamp, c.location)
	if !ok {
		return timeago.JustNow
	}
	return timeago.Label(t, c.now(), true)
}

// fillAuthor completes a created comment from the local identity when the
// server echoes back less than the full row.
func (c *Controller) fillAuthor(cm *models.Comment, postID int64, content string) {
	if cm.PostID == 0 {
		cm.PostID = postID
	}
	if cm.Content == "" {
		cm.Content = content
	}
	if cm.Timestamp == "" {
		cm.Timestamp = c.now().Format(time.RFC3339)
	}
	user := c.identity.CurrentUser()
	if user == nil {
		return
	}
	if cm.UserID == 0 {
		cm.UserID = user.ID
	}
	if cm.UserName == "" {
		cm.UserName = user.Name
	}
	if cm.Avatar == "" {
		cm.Avatar = user.Avatar
	}
}

func find(list []models.Comment, id int64) (models.Comment, bool) {
	for _, cm := range list {
		if cm.ID == id {
			return cm, true
		}
	}
	return models.Comment{}, false
}

func serverMessage(err error, fallback string) string {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
