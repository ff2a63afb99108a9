package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"time"

	"momentfeed/internal/apperrors"
	"momentfeed/internal/models"
)

// HTTPUploader posts files to an image host as multipart/form-data under the
// "file" field.
type HTTPUploader struct {
	endpoint   string
	httpClient *http.Client
	maxSize    int64
	logger     *slog.Logger
}

func NewHTTPUploader(endpoint string, httpClient *http.Client, maxSize int64, logger *slog.Logger) *HTTPUploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPUploader{
		endpoint:   endpoint,
		httpClient: httpClient,
		maxSize:    maxSize,
		logger:     logger,
	}
}

// uploadPayload covers the shapes the image host answers with: the fields at
// the top level, the same fields inside an envelope, or {data: "<url>"}.
type uploadPayload struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Key          string `json:"key"`
	MimeType     string `json:"mimeType"`
}

type uploadResponse struct {
	uploadPayload
	Success *bool                 `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *models.EnvelopeError `json:"error"`
}

func (u *HTTPUploader) Upload(ctx context.Context, fileName string, file io.Reader, size int64) (*models.UploadResult, error) {
	if err := checkSize(fileName, size, u.maxSize); err != nil {
		return nil, err
	}

	content, err := sniff(fileName, file)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(fileName)))
		header.Set("Content-Type", content.mimeType)
		part, err := form.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content.body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		pr.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("upload %s: %w", fileName, ctxErr)
		}
		return nil, fmt.Errorf("%w: upload %s: %v", apperrors.ErrNetwork, fileName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload response: %v", apperrors.ErrNetwork, err)
	}

	payload, err := parseUploadResponse(resp.StatusCode, raw)
	if err != nil {
		u.logger.Warn("upload rejected", "file", fileName, "status", resp.StatusCode, "error", err)
		return nil, err
	}

	result := &models.UploadResult{
		URL:          payload.URL,
		ThumbnailURL: payload.ThumbnailURL,
		Key:          payload.Key,
		MimeType:     payload.MimeType,
	}
	if result.MimeType == "" {
		result.MimeType = content.mimeType
	}
	if result.Key == "" {
		result.Key = keyFromURL(result.URL)
	}
	result.Kind = KindOf(result.MimeType)

	u.logger.Debug("uploaded file", "file", fileName, "url", result.URL, "kind", result.Kind)
	return result, nil
}

func parseUploadResponse(status int, raw []byte) (*uploadPayload, error) {
	var resp uploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		if status >= http.StatusBadRequest {
			return nil, &apperrors.APIError{Status: status, Message: http.StatusText(status)}
		}
		return nil, fmt.Errorf("%w: malformed upload response: %v", apperrors.ErrNetwork, err)
	}

	if (resp.Success != nil && !*resp.Success) || status >= http.StatusBadRequest {
		message := http.StatusText(status)
		if resp.Error != nil && resp.Error.Message != "" {
			message = resp.Error.Message
		}
		return nil, &apperrors.APIError{Status: status, Message: message}
	}

	payload := resp.uploadPayload
	data := bytes.TrimSpace(resp.Data)
	if payload.URL == "" && len(data) > 0 {
		if data[0] == '"' {
			if err := json.Unmarshal(data, &payload.URL); err != nil {
				return nil, fmt.Errorf("decode upload url: %w", err)
			}
		} else if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode upload data: %w", err)
		}
	}

	if payload.URL == "" {
		return nil, fmt.Errorf("upload response carries no url")
	}
	return &payload, nil
}

func keyFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Path == "" {
		return raw
	}
	return path.Base(parsed.Path)
}
