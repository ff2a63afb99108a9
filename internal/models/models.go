package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleNormal Role = "normal"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID        int64           `json:"id"`
	Account   string          `json:"account"`
	Name      string          `json:"name"`
	Role      Role            `json:"role"`
	Avatar    string          `json:"avatar,omitempty"`
	ExtraData json.RawMessage `json:"extra_data,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Credentials are kept in plaintext because the API authenticates every
// request with Basic auth and issues no token.
type Credentials struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type Session struct {
	User        *User
	Credentials *Credentials
	LoginTime   *time.Time
}

type Record struct {
	ID           int64           `json:"id"`
	CreatorID    int64           `json:"creator_id"`
	CreatorName  string          `json:"creator_name"`
	ContentText  string          `json:"content_text"`
	ContentMedia json.RawMessage `json:"content_media"`
	ExtraData    json.RawMessage `json:"extra_data"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

// RecordExtra is the decoded form of Record.ExtraData.
type RecordExtra struct {
	Location string `json:"location"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	Shares   int    `json:"shares"`
	Avatar   string `json:"avatar"`
	Verified bool   `json:"verified"`
}

type CreateRecordRequest struct {
	CreatorID    int64       `json:"creator_id"`
	ContentText  string      `json:"content_text"`
	ContentMedia *string     `json:"content_media"`
	ExtraData    RecordExtra `json:"extra_data"`
}

type UpdateRecordRequest struct {
	ContentText  *string      `json:"content_text,omitempty"`
	ContentMedia *string      `json:"content_media,omitempty"`
	ExtraData    *RecordExtra `json:"extra_data,omitempty"`
}

type ImageLayout string

const (
	LayoutNone  ImageLayout = "none"
	LayoutLarge ImageLayout = "large"
	LayoutGrid  ImageLayout = "grid"
)

type Author struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Verified bool   `json:"verified"`
}

// Post is the view model derived from a Record. It is never authoritative.
type Post struct {
	ID              int64       `json:"id"`
	AuthorID        int64       `json:"authorId"`
	Author          Author      `json:"author"`
	TextContent     string      `json:"textContent"`
	Images          []string    `json:"images"`
	Layout          ImageLayout `json:"layout"`
	LikeCount       int         `json:"likeCount"`
	CommentCount    int         `json:"commentCount"`
	ShareCount      int         `json:"shareCount"`
	CreatedAgoLabel string      `json:"createdAgoLabel"`
	Location        string      `json:"location,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

type Comment struct {
	ID        int64  `json:"id"`
	PostID    int64  `json:"postId"`
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
	Avatar    string `json:"avatar"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

type RecordPage struct {
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}

type UserPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

type Cursor struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasNext bool `json:"hasNext"`
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

type UploadResult struct {
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Key          string    `json:"key"`
	MimeType     string    `json:"mimeType"`
	Kind         MediaKind `json:"kind"`
}

// Envelope wraps every response from the remote API.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *EnvelopeError  `json:"error,omitempty"`
}

type EnvelopeError struct {
	Message string `json:"message"`
}
