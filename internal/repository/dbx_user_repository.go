package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"

	"github.com/mxteam/mediabot/internal/domain"
)

// dbxUserRepository implements domain.UserRepository on the SQLite record store.
type dbxUserRepository struct {
	db *dbx.DB
}

// NewUserRepository creates a SQLite-backed user repository.
func NewUserRepository(db *dbx.DB) domain.UserRepository {
	return &dbxUserRepository{db: db}
}

func (r *dbxUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	_, err := r.db.NewQuery(
		`INSERT INTO users (id, username, first_name, banned, download_count, created_at)
		 VALUES ({:id}, {:username}, {:first_name}, FALSE, 0, {:created_at})
		 ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name`,
	).Bind(dbx.Params{
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"created_at": user.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("USER_UPSERT_FAILED", "failed to upsert user", err)
	}
	return nil
}

func (r *dbxUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.Select("*").From("users").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("USER_NOT_FOUND", "user not found")
	}
	if err != nil {
		return nil, domain.NewInternalError("USER_READ_FAILED", "failed to read user", err)
	}
	return &user, nil
}

func (r *dbxUserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	_, err := r.db.Update("users", dbx.Params{"banned": banned}, dbx.HashExp{"id": id}).
		WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("USER_UPDATE_FAILED", "failed to update ban flag", err)
	}
	return nil
}

func (r *dbxUserRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	_, err := r.db.NewQuery(
		`UPDATE users SET download_count = download_count + 1 WHERE id = {:id}`,
	).Bind(dbx.Params{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("USER_UPDATE_FAILED", "failed to bump download count", err)
	}
	return nil
}

func (r *dbxUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Select("COUNT(*)").From("users").WithContext(ctx).Row(&n)
	if err != nil {
		return 0, domain.NewInternalError("USER_COUNT_FAILED", "failed to count users", err)
	}
	return n, nil
}
