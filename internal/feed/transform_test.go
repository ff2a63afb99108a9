package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"momentfeed/internal/models"
)

func fixedTransformer(now time.Time) Transformer {
	return Transformer{
		ServerClockOffset: DefaultServerClockOffset,
		Location:          time.UTC,
		Now:               func() time.Time { return now },
	}
}

func TestToPost(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	tr := fixedTransformer(now)

	tests := []struct {
		name  string
		rec   models.Record
		check func(t *testing.T, p models.Post)
	}{
		{
			name: "malformed media yields no images",
			rec:  models.Record{ID: 1, ContentMedia: json.RawMessage(`"{not json"`)},
			check: func(t *testing.T, p models.Post) {
				assert.NotNil(t, p.Images)
				assert.Empty(t, p.Images)
				assert.Equal(t, models.LayoutNone, p.Layout)
			},
		},
		{
			name: "single image is large",
			rec:  models.Record{ID: 2, ContentMedia: json.RawMessage(`"[\"https://img/a.png\"]"`)},
			check: func(t *testing.T, p models.Post) {
				assert.Equal(t, []string{"https://img/a.png"}, p.Images)
				assert.Equal(t, models.LayoutLarge, p.Layout)
			},
		},
		{
			name: "several images form a grid",
			rec:  models.Record{ID: 3, ContentMedia: json.RawMessage(`["a","", "b","c"]`)},
			check: func(t *testing.T, p models.Post) {
				assert.Equal(t, []string{"a", "b", "c"}, p.Images)
				assert.Equal(t, models.LayoutGrid, p.Layout)
			},
		},
		{
			name: "extra data as encoded string",
			rec: models.Record{
				ID:          4,
				CreatorID:   9,
				CreatorName: "张三",
				ExtraData:   json.RawMessage(`"{\"location\":\"赣州市\",\"likes\":12,\"comments\":3,\"shares\":1,\"verified\":true}"`),
			},
			check: func(t *testing.T, p models.Post) {
				assert.Equal(t, "赣州市", p.Location)
				assert.Equal(t, 12, p.LikeCount)
				assert.Equal(t, 3, p.CommentCount)
				assert.Equal(t, 1, p.ShareCount)
				assert.Equal(t, models.Author{Name: "张三", Verified: true}, p.Author)
				assert.Equal(t, int64(9), p.AuthorID)
			},
		},
		{
			name: "broken extra data yields zero counters",
			rec:  models.Record{ID: 5, CreatorID: 7, ExtraData: json.RawMessage(`"oops"`)},
			check: func(t *testing.T, p models.Post) {
				assert.Zero(t, p.LikeCount)
				assert.Equal(t, "用户7", p.Author.Name)
			},
		},
		{
			name: "created_at shifted by the server offset",
			// 10:00 + 8h = 18:00, two hours before now
			rec: models.Record{ID: 6, CreatedAt: "2025-06-01 10:00:00"},
			check: func(t *testing.T, p models.Post) {
				assert.Equal(t, "2小时前", p.CreatedAgoLabel)
				assert.True(t, time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC).Equal(p.CreatedAt))
			},
		},
		{
			name: "days",
			rec:  models.Record{ID: 7, CreatedAt: "2025-05-29T12:00:00Z"},
			check: func(t *testing.T, p models.Post) {
				assert.Equal(t, "3天前", p.CreatedAgoLabel)
			},
		},
		{
			name: "recent or unparsable is just now",
			rec:  models.Record{ID: 8, CreatedAt: "garbage"},
			check: func(t *testing.T, p models.Post) {
				assert.Equal(t, "刚刚", p.CreatedAgoLabel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tr.ToPost(tt.rec))
		})
	}
}

func TestLayoutFor(t *testing.T) {
	assert.Equal(t, models.LayoutNone, LayoutFor(0))
	assert.Equal(t, models.LayoutLarge, LayoutFor(1))
	assert.Equal(t, models.LayoutGrid, LayoutFor(2))
	assert.Equal(t, models.LayoutGrid, LayoutFor(9))
}
