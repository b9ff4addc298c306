package domain

import (
	"errors"
	"time"
)

var (
	ErrProjectionExists   = errors.New("search projection already exists")
	ErrProjectionNotFound = errors.New("search projection not found")
	ErrProjectionDeleted  = errors.New("search projection was deleted")
)

// SearchPost is the search service's read-only copy of a post, kept in step
// with the post service through events.
type SearchPost struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"score,omitempty"`
}

// DefaultResultLimit is how many matches a search returns.
const DefaultResultLimit = 10
