package repository

import (
	"context"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/mxteam/mediabot/internal/domain"
)

const downloadTable = "downloads"

// dbxDownloadRepository implements domain.DownloadRepository on the SQLite record store.
type dbxDownloadRepository struct {
	db *dbx.DB
}

// NewDownloadRepository creates a SQLite-backed download history repository.
func NewDownloadRepository(db *dbx.DB) domain.DownloadRepository {
	return &dbxDownloadRepository{db: db}
}

func (r *dbxDownloadRepository) Create(ctx context.Context, d *domain.Download) error {
	_, err := r.db.Insert(downloadTable, dbx.Params{
		"id":         d.ID,
		"user_id":    d.UserID,
		"media_kind": d.MediaKind,
		"source_url": d.SourceURL,
		"size":       d.Size,
		"created_at": d.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("DOWNLOAD_CREATE_FAILED", "failed to record download", err)
	}
	return nil
}

func (r *dbxDownloadRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Download, error) {
	var out []*domain.Download
	err := r.db.Select("*").From(downloadTable).
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("created_at DESC").
		WithContext(ctx).All(&out)
	if err != nil {
		return nil, domain.NewInternalError("DOWNLOAD_LIST_FAILED", "failed to list downloads", err)
	}
	return out, nil
}

func (r *dbxDownloadRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Select("COUNT(*)").From(downloadTable).WithContext(ctx).Row(&n)
	if err != nil {
		return 0, domain.NewInternalError("DOWNLOAD_COUNT_FAILED", "failed to count downloads", err)
	}
	return n, nil
}

func (r *dbxDownloadRepository) CountSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := r.db.Select("COUNT(*)").From(downloadTable).
		Where(dbx.NewExp("created_at >= {:t}", dbx.Params{"t": t})).
		WithContext(ctx).Row(&n)
	if err != nil {
		return 0, domain.NewInternalError("DOWNLOAD_COUNT_FAILED", "failed to count downloads", err)
	}
	return n, nil
}
