package content

import "time"

// Content is a protected item delivered through the chat transport once
// the user has paid the unlock price in tokens.
type Content struct {
	ID             int64     `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Description    *string   `db:"description" json:"description,omitempty"`
	FileID         string    `db:"file_id" json:"file_id"`
	FileType       string    `db:"file_type" json:"file_type"`
	TokensRequired int64     `db:"tokens_required" json:"tokens_required"`
	Deeplink       string    `db:"deeplink" json:"deeplink"`
	Views          int64     `db:"views" json:"views"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedBy      *int64    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
