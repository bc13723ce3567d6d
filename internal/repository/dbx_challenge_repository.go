package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/mxteam/mediabot/internal/domain"
)

const challengeTable = "verification_challenges"

// dbxChallengeRepository implements domain.ChallengeRepository on the SQLite record store.
type dbxChallengeRepository struct {
	db *dbx.DB
}

// NewChallengeRepository creates a SQLite-backed challenge repository.
func NewChallengeRepository(db *dbx.DB) domain.ChallengeRepository {
	return &dbxChallengeRepository{db: db}
}

func (r *dbxChallengeRepository) Create(ctx context.Context, ch *domain.VerificationChallenge) error {
	_, err := r.db.Insert(challengeTable, dbx.Params{
		"id":            ch.ID,
		"user_id":       ch.UserID,
		"target_handle": ch.TargetHandle,
		"code":          ch.Code,
		"status":        string(ch.Status),
		"created_at":    ch.CreatedAt,
		"expires_at":    ch.ExpiresAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("CHALLENGE_CREATE_FAILED", "failed to store challenge", err)
	}
	return nil
}

func (r *dbxChallengeRepository) GetPending(ctx context.Context, userID, handle string) (*domain.VerificationChallenge, error) {
	var ch domain.VerificationChallenge
	err := r.db.Select("*").From(challengeTable).
		Where(dbx.HashExp{
			"user_id":       userID,
			"target_handle": handle,
			"status":        string(domain.ChallengePending),
		}).
		OrderBy("created_at DESC").
		WithContext(ctx).One(&ch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("CHALLENGE_NOT_FOUND", "no pending challenge for this pair")
	}
	if err != nil {
		return nil, domain.NewInternalError("CHALLENGE_READ_FAILED", "failed to read challenge", err)
	}
	return &ch, nil
}

func (r *dbxChallengeRepository) Update(ctx context.Context, ch *domain.VerificationChallenge) error {
	_, err := r.db.Update(challengeTable, dbx.Params{
		"status": string(ch.Status),
	}, dbx.HashExp{"id": ch.ID}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("CHALLENGE_UPDATE_FAILED", "failed to update challenge", err)
	}
	return nil
}

func (r *dbxChallengeRepository) SupersedePending(ctx context.Context, userID, handle string) error {
	_, err := r.db.Update(challengeTable, dbx.Params{
		"status": string(domain.ChallengeSuperseded),
	}, dbx.HashExp{
		"user_id":       userID,
		"target_handle": handle,
		"status":        string(domain.ChallengePending),
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("CHALLENGE_UPDATE_FAILED", "failed to supersede challenges", err)
	}
	return nil
}

func (r *dbxChallengeRepository) DeleteExpiredBefore(ctx context.Context, t time.Time) error {
	_, err := r.db.Delete(challengeTable, dbx.NewExp(
		"expires_at < {:t} AND status != {:confirmed}",
		dbx.Params{"t": t, "confirmed": string(domain.ChallengeConfirmed)},
	)).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("CHALLENGE_SWEEP_FAILED", "failed to reclaim expired challenges", err)
	}
	return nil
}
