package domain

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

var ErrPostNotFound = errors.New("post not found")

// Post is the source-of-truth record owned by the post service.
type Post struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Content   string         `json:"content" db:"content"`
	MediaIDs  pq.StringArray `json:"media_ids" db:"media_ids"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// CreatePostRequest is the body of POST /api/posts. The author comes from
// the gateway, not the body.
type CreatePostRequest struct {
	Content  string   `json:"content"`
	MediaIDs []string `json:"media_ids,omitempty"`
	UserID   string   `json:"-"`
}

// PostPage is one page of posts, newest first.
type PostPage struct {
	Posts       []Post `json:"posts"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
	TotalPosts  int    `json:"total_posts"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// NormalizePaging applies the defaults to missing or non-positive values
// and caps the limit.
func NormalizePaging(page, limit int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
