// Package compose builds and publishes new posts.
package compose

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/debounce"
	"momentfeed/internal/decode"
	"momentfeed/internal/models"
	"momentfeed/internal/notify"
	"momentfeed/internal/repository"
	"momentfeed/internal/session"
	"momentfeed/internal/storage"
)

const (
	MaxTextLength = 500
	MaxImages     = 9
)

type Draft struct {
	Text     string                `validate:"max=500"`
	Images   []models.UploadResult `validate:"max=9"`
	Location string                `validate:"max=100"`
}

type Composer struct {
	records   repository.RecordRepository
	uploader  storage.Uploader
	identity  session.Identity
	validate  *validator.Validate
	notifier  notify.Notifier
	logger    *slog.Logger
	debouncer *debounce.Debouncer[*models.Record]

	mu    sync.Mutex
	draft Draft
}

func NewComposer(records repository.RecordRepository, uploader storage.Uploader, identity session.Identity, validate *validator.Validate, notifier notify.Notifier, logger *slog.Logger, debounceWait time.Duration) *Composer {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		records:   records,
		uploader:  uploader,
		identity:  identity,
		validate:  validate,
		notifier:  notifier,
		logger:    logger,
		debouncer: debounce.New[*models.Record](debounceWait),
	}
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.draft.Text = text
	c.mu.Unlock()
}

func (c *Composer) SetLocation(location string) {
	c.mu.Lock()
	c.draft.Location = location
	c.mu.Unlock()
}

func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	d.Images = append([]models.UploadResult(nil), c.draft.Images...)
	return d
}

func (c *Composer) Reset() {
	c.mu.Lock()
	c.draft = Draft{}
	c.mu.Unlock()
}

// AddImage uploads one file and attaches it to the draft.
func (c *Composer) AddImage(ctx context.Context, fileName string, file io.Reader, size int64) (*models.UploadResult, error) {
	if c.imageCount() >= MaxImages {
		return nil, fmt.Errorf("%w: at most %d images", apperrors.ErrInvalidInput, MaxImages)
	}

	result, err := c.uploader.Upload(ctx, fileName, file, size)
	if err != nil {
		c.logger.Warn("upload failed", "file", fileName, "error", err)
		notify.Error(c.notifier, "图片上传失败")
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.draft.Images) >= MaxImages {
		return nil, fmt.Errorf("%w: at most %d images", apperrors.ErrInvalidInput, MaxImages)
	}
	c.draft.Images = append(c.draft.Images, *result)
	return result, nil
}

func (c *Composer) RemoveImage(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.draft.Images) {
		return apperrors.ErrInvalidTarget
	}
	c.draft.Images = append(c.draft.Images[:index], c.draft.Images[index+1:]...)
	return nil
}

// Publish creates a record from the draft. Calls arriving within the
// debounce wait collapse into one request whose result goes to the last
// caller; earlier callers get debounce.ErrSuperseded.
func (c *Composer) Publish(ctx context.Context) (*models.Record, error) {
	return c.debouncer.Do(ctx, c.publish)
}

func (c *Composer) publish(ctx context.Context) (*models.Record, error) {
	user := c.identity.CurrentUser()
	if !user.IsAdmin() {
		notify.Error(c.notifier, apperrors.UserMessage(apperrors.ErrUnauthorized, ""))
		return nil, apperrors.ErrUnauthorized
	}

	draft := c.Draft()
	if strings.TrimSpace(draft.Text) == "" && len(draft.Images) == 0 {
		notify.Error(c.notifier, "请输入内容或上传图片")
		return nil, apperrors.ErrEmptyContent
	}
	if err := c.validate.Struct(draft); err != nil {
		notify.Error(c.notifier, fmt.Sprintf("内容不能超过%d字，图片不能超过%d张", MaxTextLength, MaxImages))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	req, err := buildRequest(user.ID, draft)
	if err != nil {
		return nil, err
	}

	record, err := c.records.Create(ctx, req)
	if err != nil {
		c.logger.Warn("publish failed", "error", err)
		notify.Error(c.notifier, "发布失败，请重试")
		return nil, err
	}

	c.Reset()
	c.logger.Info("published record", "record_id", record.ID, "images", len(draft.Images))
	notify.Success(c.notifier, "发布成功")
	return record, nil
}

func buildRequest(creatorID int64, draft Draft) (models.CreateRecordRequest, error) {
	req := models.CreateRecordRequest{
		CreatorID:   creatorID,
		ContentText: draft.Text,
		ExtraData:   models.RecordExtra{Location: draft.Location},
	}
	if len(draft.Images) > 0 {
		urls := make([]string, 0, len(draft.Images))
		for _, img := range draft.Images {
			urls = append(urls, img.URL)
		}
		media, err := decode.Encode(urls)
		if err != nil {
			return req, fmt.Errorf("encode content media: %w", err)
		}
		req.ContentMedia = &media
	}
	return req, nil
}

func (c *Composer) imageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.draft.Images)
}
