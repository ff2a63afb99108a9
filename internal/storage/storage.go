package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
)

// sniffLen is how many leading bytes are inspected to detect the content type.
const sniffLen = 3072

// Uploader stores one media file and reports where it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, fileName string, file io.Reader, size int64) (*models.UploadResult, error)
}

// KindOf classifies a MIME type as video or image. Anything that is not
// video/* is treated as an image.
func KindOf(mimeType string) models.MediaKind {
	if strings.HasPrefix(strings.ToLower(mimeType), "video/") {
		return models.MediaVideo
	}
	return models.MediaImage
}

type sniffed struct {
	mimeType  string
	extension string
	body      io.Reader
}

// sniff detects the content type of file from its first bytes and returns a
// reader that still yields the whole content.
func sniff(fileName string, file io.Reader) (*sniffed, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	head = head[:n]

	ext := strings.ToLower(filepath.Ext(fileName))
	detected := mimetype.Detect(head)
	mimeType := detected.String()
	if detected.Is("application/octet-stream") || detected.Is("text/plain") {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			mimeType = byExt
		}
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if ext == "" {
		ext = detected.Extension()
	}

	return &sniffed{
		mimeType:  mimeType,
		extension: ext,
		body:      io.MultiReader(bytes.NewReader(head), file),
	}, nil
}

func checkSize(fileName string, size, maxSize int64) error {
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", apperrors.ErrInvalidInput, fileName, size, maxSize)
	}
	return nil
}
