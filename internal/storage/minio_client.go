package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"momentfeed/internal/config"
	"momentfeed/internal/models"
)

// MinIOUploader stores record media directly in an S3-compatible bucket.
type MinIOUploader struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
	maxSize   int64
	logger    *slog.Logger
	now       func() time.Time
}

func NewMinIOUploader(cfg config.MinIO, maxSize int64, logger *slog.Logger) (*MinIOUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &MinIOUploader{
		client:    client,
		bucket:    cfg.BucketName,
		region:    cfg.Region,
		publicURL: publicURL,
		maxSize:   maxSize,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *MinIOUploader) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	m.logger.Info("created bucket", "bucket", m.bucket)
	return nil
}

func (m *MinIOUploader) Upload(ctx context.Context, fileName string, file io.Reader, size int64) (*models.UploadResult, error) {
	if err := checkSize(fileName, size, m.maxSize); err != nil {
		return nil, err
	}

	content, err := sniff(fileName, file)
	if err != nil {
		return nil, err
	}

	now := m.now()
	objectName := objectKey(now, uuid.New(), content.extension)

	_, err = m.client.PutObject(ctx, m.bucket, objectName, content.body, size,
		minio.PutObjectOptions{
			ContentType: content.mimeType,
			UserMetadata: map[string]string{
				"original-filename": fileName,
				"uploaded-at":       now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return nil, fmt.Errorf("put %s into bucket %s: %w", objectName, m.bucket, err)
	}

	m.logger.Debug("stored object", "bucket", m.bucket, "object", objectName, "mime", content.mimeType)

	return &models.UploadResult{
		URL:      m.ObjectURL(objectName),
		Key:      objectName,
		MimeType: content.mimeType,
		Kind:     KindOf(content.mimeType),
	}, nil
}

func (m *MinIOUploader) Delete(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove %s from bucket %s: %w", objectName, m.bucket, err)
	}
	return nil
}

func (m *MinIOUploader) ObjectURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, objectName)
}

func objectKey(now time.Time, id uuid.UUID, ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("records/%d/%02d/%s%s", now.Year(), now.Month(), id.String(), ext)
}
