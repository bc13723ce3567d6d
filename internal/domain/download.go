package domain

import (
	"context"
	"time"
)

// Download is one completed retrieval recorded for history and statistics.
type Download struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	MediaKind string    `json:"media_kind" db:"media_kind"`
	SourceURL string    `json:"source_url" db:"source_url"`
	Size      int64     `json:"size" db:"size"`
}

// DownloadRepository defines record-store operations for download history.
type DownloadRepository interface {
	Create(ctx context.Context, d *Download) error
	ListByUser(ctx context.Context, userID string) ([]*Download, error)
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, t time.Time) (int, error)
}
