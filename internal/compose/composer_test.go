package compose

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/debounce"
	"momentfeed/internal/models"
	"momentfeed/internal/notify"
	"momentfeed/internal/repository/mocks"
)

type staticIdentity struct {
	user *models.User
}

func (s staticIdentity) CurrentUser() *models.User { return s.user }

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, fileName string, file io.Reader, _ int64) (*models.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	io.Copy(io.Discard, file)
	return &models.UploadResult{URL: "https://img/" + fileName, Key: fileName, MimeType: "image/png", Kind: models.MediaImage}, nil
}

var (
	admin  = &models.User{ID: 2, Role: models.RoleAdmin}
	normal = &models.User{ID: 3, Role: models.RoleNormal}
)

func newComposer(repo *mocks.MockRecordRepository, uploader *fakeUploader, user *models.User) (*Composer, *notify.Recorder) {
	recorder := &notify.Recorder{}
	return NewComposer(repo, uploader, staticIdentity{user: user}, nil, recorder, nil, 10*time.Millisecond), recorder
}

func TestComposer_PublishBuildsRecord(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.MockRecordRepository)
	media := `["https://img/a.png","https://img/b.png"]`
	repo.On("Create", mock.Anything, models.CreateRecordRequest{
		CreatorID:    2,
		ContentText:  "周末愉快",
		ContentMedia: &media,
		ExtraData:    models.RecordExtra{Location: "赣州市"},
	}).Return(&models.Record{ID: 50}, nil)
	c, recorder := newComposer(repo, &fakeUploader{}, admin)

	c.SetText("周末愉快")
	c.SetLocation("赣州市")
	_, err := c.AddImage(ctx, "a.png", bytes.NewReader([]byte("x")), 1)
	require.NoError(t, err)
	_, err = c.AddImage(ctx, "b.png", bytes.NewReader([]byte("y")), 1)
	require.NoError(t, err)

	rec, err := c.Publish(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(50), rec.ID)
	assert.Empty(t, c.Draft().Text)
	assert.Empty(t, c.Draft().Images)
	last, _ := recorder.Last()
	assert.Equal(t, "发布成功", last.Message)
	repo.AssertExpectations(t)
}

func TestComposer_TextOnlySendsNullMedia(t *testing.T) {
	repo := new(mocks.MockRecordRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(req models.CreateRecordRequest) bool {
		return req.ContentMedia == nil && req.ContentText == "hello"
	})).Return(&models.Record{ID: 1}, nil)
	c, _ := newComposer(repo, &fakeUploader{}, admin)
	c.SetText("hello")

	_, err := c.Publish(context.Background())

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestComposer_PublishRejections(t *testing.T) {
	tests := []struct {
		name    string
		user    *models.User
		text    string
		wantErr error
	}{
		{"not admin", normal, "hello", apperrors.ErrUnauthorized},
		{"anonymous", nil, "hello", apperrors.ErrUnauthorized},
		{"nothing to publish", admin, "   ", apperrors.ErrEmptyContent},
		{"text too long", admin, strings.Repeat("字", MaxTextLength+1), apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockRecordRepository)
			c, recorder := newComposer(repo, &fakeUploader{}, tt.user)
			c.SetText(tt.text)

			_, err := c.Publish(context.Background())

			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			_, notified := recorder.Last()
			assert.True(t, notified)
		})
	}
}

func TestComposer_RapidPublishCollapses(t *testing.T) {
	repo := new(mocks.MockRecordRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(&models.Record{ID: 8}, nil).Once()
	c, _ := newComposer(repo, &fakeUploader{}, admin)
	c.SetText("once")

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Publish(context.Background())
		}(i)
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	superseded := 0
	for _, err := range errs {
		if errors.Is(err, debounce.ErrSuperseded) {
			superseded++
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, 2, superseded)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestComposer_Images(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{}
	c, _ := newComposer(new(mocks.MockRecordRepository), uploader, admin)

	for i := 0; i < MaxImages; i++ {
		_, err := c.AddImage(ctx, "p.png", bytes.NewReader(nil), 0)
		require.NoError(t, err)
	}
	_, err := c.AddImage(ctx, "p.png", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, MaxImages, uploader.calls)

	require.NoError(t, c.RemoveImage(0))
	assert.Len(t, c.Draft().Images, MaxImages-1)
	assert.ErrorIs(t, c.RemoveImage(20), apperrors.ErrInvalidTarget)
}

func TestComposer_UploadFailureNotifies(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("413")}
	c, recorder := newComposer(new(mocks.MockRecordRepository), uploader, admin)

	_, err := c.AddImage(context.Background(), "big.png", bytes.NewReader(nil), 0)

	require.Error(t, err)
	assert.Empty(t, c.Draft().Images)
	last, _ := recorder.Last()
	assert.Equal(t, "图片上传失败", last.Message)
}
