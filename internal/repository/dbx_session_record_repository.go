package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"github.com/mxteam/mediabot/internal/domain"
)

// dbxSessionRecordRepository implements domain.SessionRecordRepository on the SQLite record store.
type dbxSessionRecordRepository struct {
	db *dbx.DB
}

// NewSessionRecordRepository creates a SQLite-backed session status repository.
func NewSessionRecordRepository(db *dbx.DB) domain.SessionRecordRepository {
	return &dbxSessionRecordRepository{db: db}
}

func (r *dbxSessionRecordRepository) Upsert(ctx context.Context, rec *domain.SessionRecord) error {
	_, err := r.db.NewQuery(
		`INSERT INTO session_records (account_id, status, last_validated)
		 VALUES ({:account_id}, {:status}, {:last_validated})
		 ON CONFLICT (account_id) DO UPDATE SET
			status = excluded.status,
			last_validated = excluded.last_validated`,
	).Bind(dbx.Params{
		"account_id":     rec.AccountID,
		"status":         string(rec.Status),
		"last_validated": rec.LastValidated,
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("SESSION_RECORD_UPSERT_FAILED", "failed to upsert session record", err)
	}
	return nil
}

func (r *dbxSessionRecordRepository) Get(ctx context.Context, accountID string) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := r.db.Select("*").From("session_records").
		Where(dbx.HashExp{"account_id": accountID}).
		WithContext(ctx).One(&rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("SESSION_RECORD_NOT_FOUND", "no session record for account")
	}
	if err != nil {
		return nil, domain.NewInternalError("SESSION_RECORD_READ_FAILED", "failed to read session record", err)
	}
	return &rec, nil
}
