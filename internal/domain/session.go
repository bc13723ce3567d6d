package domain

import (
	"context"
	"time"
)

// SessionStatus describes the health of a managed platform session.
type SessionStatus string

const (
	// SessionUnknown means the session has never been validated.
	SessionUnknown SessionStatus = "unknown"
	// SessionValid means the last probe against the platform succeeded.
	SessionValid SessionStatus = "valid"
	// SessionExpired means the platform rejected the stored credentials.
	SessionExpired SessionStatus = "expired"
	// SessionChallengeRequired means a login challenge is pending out-of-band completion.
	SessionChallengeRequired SessionStatus = "challenge_required"
)

// SessionRef is the caller-visible view of a managed session. The serialized
// authentication blob never appears here; it is owned exclusively by the
// session manager and its store.
type SessionRef struct {
	LastValidated time.Time     `json:"last_validated"`
	AccountID     string        `json:"account_id"`
	Status        SessionStatus `json:"status"`
}

// SessionRecord is the persisted status row for a managed account.
type SessionRecord struct {
	LastValidated time.Time     `json:"last_validated" db:"last_validated"`
	AccountID     string        `json:"account_id" db:"account_id"`
	Status        SessionStatus `json:"status" db:"status"`
}

// SessionStore persists one opaque serialized authentication blob per managed
// account. Writes are atomic: a partially written blob must never replace a
// previously valid one.
type SessionStore interface {
	// Save atomically replaces the stored blob for the account.
	Save(ctx context.Context, accountID string, blob []byte) error

	// Load returns the stored blob, or a NOT_FOUND domain error.
	Load(ctx context.Context, accountID string) ([]byte, error)

	// Delete removes the stored blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, accountID string) error
}

// SessionRecordRepository persists session status rows in the record store.
type SessionRecordRepository interface {
	Upsert(ctx context.Context, rec *SessionRecord) error
	Get(ctx context.Context, accountID string) (*SessionRecord, error)
}
