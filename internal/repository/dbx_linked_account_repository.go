package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"github.com/mxteam/mediabot/internal/domain"
)

const linkedAccountTable = "linked_accounts"

// dbxLinkedAccountRepository implements domain.LinkedAccountRepository on the SQLite record store.
type dbxLinkedAccountRepository struct {
	db *dbx.DB
}

// NewLinkedAccountRepository creates a SQLite-backed linked account repository.
func NewLinkedAccountRepository(db *dbx.DB) domain.LinkedAccountRepository {
	return &dbxLinkedAccountRepository{db: db}
}

func (r *dbxLinkedAccountRepository) Create(ctx context.Context, la *domain.LinkedAccount) error {
	_, err := r.db.Insert(linkedAccountTable, dbx.Params{
		"id":          la.ID,
		"user_id":     la.UserID,
		"handle":      la.Handle,
		"verified_at": la.VerifiedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("LINK_CREATE_FAILED", "failed to store linked account", err)
	}
	return nil
}

func (r *dbxLinkedAccountRepository) GetByUserAndHandle(ctx context.Context, userID, handle string) (*domain.LinkedAccount, error) {
	var la domain.LinkedAccount
	err := r.db.Select("*").From(linkedAccountTable).
		Where(dbx.HashExp{"user_id": userID, "handle": handle}).
		WithContext(ctx).One(&la)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("LINK_NOT_FOUND", "no linked account for this pair")
	}
	if err != nil {
		return nil, domain.NewInternalError("LINK_READ_FAILED", "failed to read linked account", err)
	}
	return &la, nil
}

func (r *dbxLinkedAccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.LinkedAccount, error) {
	var out []*domain.LinkedAccount
	err := r.db.Select("*").From(linkedAccountTable).
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("verified_at DESC").
		WithContext(ctx).All(&out)
	if err != nil {
		return nil, domain.NewInternalError("LINK_LIST_FAILED", "failed to list linked accounts", err)
	}
	return out, nil
}

func (r *dbxLinkedAccountRepository) Delete(ctx context.Context, userID, handle string) error {
	_, err := r.db.Delete(linkedAccountTable, dbx.HashExp{"user_id": userID, "handle": handle}).
		WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("LINK_DELETE_FAILED", "failed to delete linked account", err)
	}
	return nil
}

func (r *dbxLinkedAccountRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Select("COUNT(*)").From(linkedAccountTable).WithContext(ctx).Row(&n)
	if err != nil {
		return 0, domain.NewInternalError("LINK_COUNT_FAILED", "failed to count linked accounts", err)
	}
	return n, nil
}
