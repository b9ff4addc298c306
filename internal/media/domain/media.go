package domain

import "time"

// Media is an uploaded file's record. The file itself lives in object
// storage under PublicID.
type Media struct {
	ID           string    `json:"id" db:"id"`
	PublicID     string    `json:"public_id" db:"public_id"`
	OriginalName string    `json:"original_name" db:"original_name"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	URL          string    `json:"url" db:"url"`
	UserID       string    `json:"user_id" db:"user_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
