package feed

import (
	"strconv"
	"strings"
	"time"

	"momentfeed/internal/decode"
	"momentfeed/internal/models"
	"momentfeed/internal/timeago"
)

const DefaultServerClockOffset = 8 * time.Hour

// Transformer derives Post view models from server records.
type Transformer struct {
	// ServerClockOffset is added to created_at before it is compared with
	// the local clock.
	ServerClockOffset time.Duration
	// Location interprets created_at values that carry no zone.
	Location *time.Location
	Now      func() time.Time
}

func NewTransformer(offset time.Duration) Transformer {
	return Transformer{ServerClockOffset: offset, Location: time.Local, Now: time.Now}
}

func (tr Transformer) ToPost(rec models.Record) models.Post {
	images := cleanURLs(decode.Field[[]string](rec.ContentMedia, nil))
	extra := decode.Field(rec.ExtraData, models.RecordExtra{})

	post := models.Post{
		ID:       rec.ID,
		AuthorID: rec.CreatorID,
		Author: models.Author{
			Name:     authorName(rec),
			Avatar:   extra.Avatar,
			Verified: extra.Verified,
		},
		TextContent:     rec.ContentText,
		Images:          images,
		Layout:          LayoutFor(len(images)),
		LikeCount:       extra.Likes,
		CommentCount:    extra.Comments,
		ShareCount:      extra.Shares,
		Location:        extra.Location,
		CreatedAgoLabel: timeago.JustNow,
	}

	if created, ok := timeago.Parse(rec.CreatedAt, tr.Location); ok {
		post.CreatedAt = created.Add(tr.ServerClockOffset)
		post.CreatedAgoLabel = timeago.Label(post.CreatedAt, tr.now(), false)
	}
	return post
}

func (tr Transformer) now() time.Time {
	if tr.Now == nil {
		return time.Now()
	}
	return tr.Now()
}

func LayoutFor(images int) models.ImageLayout {
	switch {
	case images == 0:
		return models.LayoutNone
	case images == 1:
		return models.LayoutLarge
	default:
		return models.LayoutGrid
	}
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func authorName(rec models.Record) string {
	if rec.CreatorName != "" {
		return rec.CreatorName
	}
	return "用户" + strconv.FormatInt(rec.CreatorID, 10)
}
