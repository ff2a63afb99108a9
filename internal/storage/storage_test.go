package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/config"
	"momentfeed/internal/models"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)
	mp4Bytes = append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), bytes.Repeat([]byte{0}, 64)...)
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		mime string
		want models.MediaKind
	}{
		{"video/mp4", models.MediaVideo},
		{"VIDEO/QuickTime", models.MediaVideo},
		{"image/png", models.MediaImage},
		{"application/octet-stream", models.MediaImage},
		{"", models.MediaImage},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.mime))
		})
	}
}

func TestSniff(t *testing.T) {
	t.Run("png keeps full body", func(t *testing.T) {
		got, err := sniff("photo.PNG", bytes.NewReader(pngBytes))
		require.NoError(t, err)
		assert.Equal(t, "image/png", got.mimeType)
		assert.Equal(t, ".png", got.extension)

		body, err := io.ReadAll(got.body)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, body)
	})

	t.Run("extension from content when name has none", func(t *testing.T) {
		got, err := sniff("clip", bytes.NewReader(mp4Bytes))
		require.NoError(t, err)
		assert.Equal(t, "video/mp4", got.mimeType)
		assert.Equal(t, ".mp4", got.extension)
	})

	t.Run("read failure", func(t *testing.T) {
		_, err := sniff("x.png", io.MultiReader(strings.NewReader("ab"), errReader{}))
		assert.Error(t, err)
	})
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6f1c1a52-8f6e-4b7e-9a43-3c3a0d7a9c11")
	now := time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "records/2025/03/6f1c1a52-8f6e-4b7e-9a43-3c3a0d7a9c11.png", objectKey(now, id, ".png"))
	assert.Equal(t, "records/2025/03/6f1c1a52-8f6e-4b7e-9a43-3c3a0d7a9c11.bin", objectKey(now, id, ""))
}

func TestHTTPUploader_Upload(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     *models.UploadResult
		wantErr  string
	}{
		{
			name:     "bare data url",
			status:   http.StatusOK,
			response: `{"data":"https://img.example.com/files/abc.png"}`,
			want: &models.UploadResult{
				URL:      "https://img.example.com/files/abc.png",
				Key:      "abc.png",
				MimeType: "image/png",
				Kind:     models.MediaImage,
			},
		},
		{
			name:     "top level fields",
			status:   http.StatusOK,
			response: `{"url":"https://cdn/v.mp4","thumbnailUrl":"https://cdn/v.jpg","key":"k1","mimeType":"video/mp4"}`,
			want: &models.UploadResult{
				URL:          "https://cdn/v.mp4",
				ThumbnailURL: "https://cdn/v.jpg",
				Key:          "k1",
				MimeType:     "video/mp4",
				Kind:         models.MediaVideo,
			},
		},
		{
			name:     "enveloped object",
			status:   http.StatusOK,
			response: `{"success":true,"data":{"url":"https://cdn/a.png","key":"a"}}`,
			want: &models.UploadResult{
				URL:      "https://cdn/a.png",
				Key:      "a",
				MimeType: "image/png",
				Kind:     models.MediaImage,
			},
		},
		{
			name:     "envelope failure",
			status:   http.StatusOK,
			response: `{"success":false,"error":{"message":"文件过大"}}`,
			wantErr:  "文件过大",
		},
		{
			name:     "non json error status",
			status:   http.StatusBadGateway,
			response: `<html>bad gateway</html>`,
			wantErr:  "Bad Gateway",
		},
		{
			name:     "missing url",
			status:   http.StatusOK,
			response: `{"success":true}`,
			wantErr:  "no url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFile []byte
			var gotName string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				file, header, err := r.FormFile("file")
				if err == nil {
					gotName = header.Filename
					gotFile, _ = io.ReadAll(file)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.response)
			}))
			defer server.Close()

			uploader := NewHTTPUploader(server.URL, server.Client(), 0, nil)
			got, err := uploader.Upload(context.Background(), "dir/photo.png", bytes.NewReader(pngBytes), int64(len(pngBytes)))

			assert.Equal(t, "photo.png", gotName)
			assert.Equal(t, pngBytes, gotFile)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPUploader_RejectsOversizedFile(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	uploader := NewHTTPUploader(server.URL, server.Client(), 10, nil)
	_, err := uploader.Upload(context.Background(), "big.png", bytes.NewReader(pngBytes), int64(len(pngBytes)))

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.False(t, called)
}

func TestHTTPUploader_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	uploader := NewHTTPUploader(endpoint, nil, 0, nil)
	_, err := uploader.Upload(context.Background(), "a.png", bytes.NewReader(pngBytes), int64(len(pngBytes)))

	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestMinIOUploader_ObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIO
		want string
	}{
		{
			name: "derived from endpoint",
			cfg:  config.MinIO{Endpoint: "localhost:9000", BucketName: "images", Region: "us-east-1"},
			want: "http://localhost:9000/images/records/2025/01/x.png",
		},
		{
			name: "tls endpoint",
			cfg:  config.MinIO{Endpoint: "s3.example.com", BucketName: "media", UseSSL: true, Region: "us-east-1"},
			want: "https://s3.example.com/media/records/2025/01/x.png",
		},
		{
			name: "public url wins",
			cfg:  config.MinIO{Endpoint: "minio:9000", BucketName: "images", PublicURL: "https://cdn.example.com/", Region: "us-east-1"},
			want: "https://cdn.example.com/images/records/2025/01/x.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader, err := NewMinIOUploader(tt.cfg, 0, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, uploader.ObjectURL("records/2025/01/x.png"))
		})
	}
}

func TestMinIOUploader_Upload(t *testing.T) {
	var gotPath, gotContentType, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotFilename = r.Header.Get("X-Amz-Meta-Original-Filename")
		io.Copy(io.Discard, r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	endpoint := strings.TrimPrefix(server.URL, "http://")
	uploader, err := NewMinIOUploader(config.MinIO{
		Endpoint:   endpoint,
		AccessKey:  "minioadmin",
		SecretKey:  "minioadmin",
		BucketName: "images",
		Region:     "us-east-1",
	}, 0, nil)
	require.NoError(t, err)
	uploader.now = func() time.Time { return time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC) }

	result, err := uploader.Upload(context.Background(), "clip.mp4", bytes.NewReader(mp4Bytes), int64(len(mp4Bytes)))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotPath, "/images/records/2025/07/"), gotPath)
	assert.True(t, strings.HasSuffix(result.Key, ".mp4"))
	assert.Equal(t, "video/mp4", gotContentType)
	assert.Equal(t, "clip.mp4", gotFilename)
	assert.Equal(t, models.MediaVideo, result.Kind)
	assert.Equal(t, "http://"+endpoint+"/images/"+result.Key, result.URL)
}
