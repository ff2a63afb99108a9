// Package feed keeps the paginated list of posts and the optimistic
// interactions layered on it.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
	"momentfeed/internal/notify"
	"momentfeed/internal/repository"
	"momentfeed/internal/session"
)

type Mode int

const (
	Replace Mode = iota
	Append
)

type Viewport struct {
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
}

func (v Viewport) distanceToBottom() float64 {
	return v.ScrollHeight - v.ScrollTop - v.ClientHeight
}

type PostView struct {
	models.Post
	Liked    bool `json:"liked"`
	Deleting bool `json:"deleting"`
}

type Snapshot struct {
	Posts      []PostView    `json:"posts"`
	Cursor     models.Cursor `json:"cursor"`
	Loading    bool          `json:"loading"`
	Refreshing bool          `json:"refreshing"`
	HasMore    bool          `json:"hasMore"`
}

type Options struct {
	PageLimit       int
	MaxPages        int
	ScrollThreshold float64
	Transformer     Transformer
}

func DefaultOptions() Options {
	return Options{
		PageLimit:       10,
		MaxPages:        50,
		ScrollThreshold: 100,
		Transformer:     NewTransformer(DefaultServerClockOffset),
	}
}

type Controller struct {
	records  repository.RecordRepository
	identity session.Identity
	notifier notify.Notifier
	logger   *slog.Logger
	opts     Options

	mu         sync.Mutex
	posts      []models.Post
	liked      map[int64]bool
	deleting   map[int64]bool
	cursor     models.Cursor
	loading    bool
	refreshing bool
	generation uint64
}

func NewController(records repository.RecordRepository, identity session.Identity, notifier notify.Notifier, logger *slog.Logger, opts Options) *Controller {
	defaults := DefaultOptions()
	if opts.PageLimit <= 0 {
		opts.PageLimit = defaults.PageLimit
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaults.MaxPages
	}
	if opts.ScrollThreshold <= 0 {
		opts.ScrollThreshold = defaults.ScrollThreshold
	}
	if opts.Transformer.Now == nil {
		opts.Transformer = defaults.Transformer
	}
	if logger == nil {
		logger = slog.Default()
	}
	// HasNext starts true so page 1 can be appended; the server decides after that.
	return &Controller{
		records:  records,
		identity: identity,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		liked:    map[int64]bool{},
		deleting: map[int64]bool{},
		cursor:   models.Cursor{Limit: opts.PageLimit, HasNext: true},
	}
}

// FetchPage loads one page. Replace starts over and invalidates any fetch
// still in flight; Append only accepts the page right after the cursor and
// refuses to overlap another fetch.
func (c *Controller) FetchPage(ctx context.Context, page int, mode Mode) error {
	c.mu.Lock()
	if mode == Append {
		if c.loading {
			c.mu.Unlock()
			return apperrors.ErrFetchInFlight
		}
		if page != c.cursor.Page+1 {
			c.mu.Unlock()
			return fmt.Errorf("%w: page %d does not follow page %d", apperrors.ErrInvalidInput, page, c.cursor.Page)
		}
		if !c.cursor.HasNext {
			c.mu.Unlock()
			return nil
		}
	} else {
		c.generation++
		c.refreshing = true
	}
	c.loading = true
	gen := c.generation
	c.mu.Unlock()

	result, err := c.records.List(ctx, page, c.opts.PageLimit)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding stale feed page", "page", page)
		return nil
	}
	c.loading = false
	if mode == Replace {
		c.refreshing = false
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("load feed page failed", "page", page, "error", err)
		notify.Error(c.notifier, apperrors.UserMessage(err, "加载失败，请重试"))
		return err
	}

	incoming := make([]models.Post, 0, len(result.Records))
	for _, rec := range result.Records {
		incoming = append(incoming, c.opts.Transformer.ToPost(rec))
	}

	if mode == Replace {
		c.posts = dedupe(nil, incoming)
		c.liked = map[int64]bool{}
	} else {
		c.posts = dedupe(c.posts, incoming)
	}
	c.cursor = models.Cursor{
		Page:    page,
		Limit:   c.opts.PageLimit,
		HasNext: result.Pagination.HasNext && page < c.opts.MaxPages,
	}
	c.mu.Unlock()

	c.logger.Debug("feed page loaded", "page", page, "records", len(incoming))
	return nil
}

// Refresh reloads the first page and drops the local like overlay.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.FetchPage(ctx, 1, Replace)
}

// OnScroll loads the next page once the viewport is within the threshold of
// the bottom. It reports whether a fetch was made.
func (c *Controller) OnScroll(ctx context.Context, vp Viewport) (bool, error) {
	c.mu.Lock()
	near := vp.distanceToBottom() < c.opts.ScrollThreshold
	if !near || c.loading || !c.cursor.HasNext {
		c.mu.Unlock()
		return false, nil
	}
	next := c.cursor.Page + 1
	c.mu.Unlock()

	err := c.FetchPage(ctx, next, Append)
	if errors.Is(err, apperrors.ErrFetchInFlight) {
		return false, nil
	}
	return err == nil, err
}

// ToggleLike flips the local like state of a post. It is never sent to the
// server.
func (c *Controller) ToggleLike(id int64) (PostView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return PostView{}, apperrors.ErrInvalidTarget
	}
	if c.liked[id] {
		delete(c.liked, id)
		c.posts[i].LikeCount--
	} else {
		c.liked[id] = true
		c.posts[i].LikeCount++
	}
	return c.viewLocked(c.posts[i]), nil
}

// DeletePost removes a post on the server. The post stays listed with its
// deleting flag set until the call returns; a failure clears the flag and
// keeps the post.
func (c *Controller) DeletePost(ctx context.Context, id int64) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return apperrors.ErrInvalidTarget
	}
	if !c.canDelete(c.posts[i]) {
		c.mu.Unlock()
		notify.Error(c.notifier, apperrors.UserMessage(apperrors.ErrUnauthorized, ""))
		return apperrors.ErrUnauthorized
	}
	if c.deleting[id] {
		c.mu.Unlock()
		return apperrors.ErrDeleteInFlight
	}
	c.deleting[id] = true
	c.mu.Unlock()

	err := c.records.Delete(ctx, id)

	c.mu.Lock()
	delete(c.deleting, id)
	if err == nil {
		if i := c.indexOf(id); i >= 0 {
			c.posts = append(c.posts[:i], c.posts[i+1:]...)
		}
		delete(c.liked, id)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("delete post failed", "post_id", id, "error", err)
		notify.Error(c.notifier, apperrors.UserMessage(err, "删除失败，请重试"))
		return err
	}
	notify.Success(c.notifier, "删除成功")
	return nil
}

// CanCreate reports whether the signed-in user may publish posts.
func (c *Controller) CanCreate() bool {
	return c.identity.CurrentUser().IsAdmin()
}

func (c *Controller) CanDelete(post models.Post) bool {
	return c.canDelete(post)
}

func (c *Controller) canDelete(post models.Post) bool {
	user := c.identity.CurrentUser()
	if user == nil {
		return false
	}
	return user.ID == post.AuthorID || user.IsAdmin()
}

func (c *Controller) Post(id int64) (PostView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return PostView{}, false
	}
	return c.viewLocked(c.posts[i]), true
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	posts := make([]PostView, 0, len(c.posts))
	for _, p := range c.posts {
		posts = append(posts, c.viewLocked(p))
	}
	return Snapshot{
		Posts:      posts,
		Cursor:     c.cursor,
		Loading:    c.loading,
		Refreshing: c.refreshing,
		HasMore:    c.cursor.HasNext,
	}
}

func (c *Controller) viewLocked(p models.Post) PostView {
	p.Images = append([]string{}, p.Images...)
	return PostView{Post: p, Liked: c.liked[p.ID], Deleting: c.deleting[p.ID]}
}

func (c *Controller) indexOf(id int64) int {
	for i := range c.posts {
		if c.posts[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupe appends incoming to existing, skipping ids already present.
func dedupe(existing, incoming []models.Post) []models.Post {
	seen := make(map[int64]bool, len(existing)+len(incoming))
	out := make([]models.Post, 0, len(existing)+len(incoming))
	for _, p := range existing {
		seen[p.ID] = true
		out = append(out, p)
	}
	for _, p := range incoming {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
