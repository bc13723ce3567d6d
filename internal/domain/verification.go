package domain

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"time"
)

// ChallengeStatus describes the lifecycle state of a verification challenge.
type ChallengeStatus string

const (
	// ChallengePending means the code was issued and awaits a matching DM.
	ChallengePending ChallengeStatus = "pending"
	// ChallengeConfirmed means a matching DM was found before expiry. Terminal.
	ChallengeConfirmed ChallengeStatus = "confirmed"
	// ChallengeExpired means the window elapsed without a match. Terminal.
	ChallengeExpired ChallengeStatus = "expired"
	// ChallengeSuperseded means a newer challenge for the same pair replaced it. Terminal.
	ChallengeSuperseded ChallengeStatus = "superseded"
)

// CodeLength is the fixed length of verification codes.
const CodeLength = 8

// codeAlphabet excludes visually ambiguous characters (I, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9._]{1,30}$`)

// VerificationChallenge is a time-boxed proof-of-ownership code tied to one
// (user, target handle) pair.
type VerificationChallenge struct {
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at" db:"expires_at"`
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	TargetHandle string          `json:"target_handle" db:"target_handle"`
	Code         string          `json:"code" db:"code"`
	Status       ChallengeStatus `json:"status" db:"status"`
}

// IsExpired reports whether the challenge window elapsed at the given instant.
func (c *VerificationChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Confirm transitions a pending challenge to confirmed. Returns false if the
// challenge is not pending or already past expiry at the given instant.
func (c *VerificationChallenge) Confirm(now time.Time) bool {
	if c.Status != ChallengePending || c.IsExpired(now) {
		return false
	}
	c.Status = ChallengeConfirmed
	return true
}

// Expire transitions a pending challenge to expired.
func (c *VerificationChallenge) Expire() {
	if c.Status == ChallengePending {
		c.Status = ChallengeExpired
	}
}

// LinkedAccount is a confirmed association between a bot user and a platform
// handle. Append-only once confirmed; removed only by the owning user.
type LinkedAccount struct {
	VerifiedAt time.Time `json:"verified_at" db:"verified_at"`
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Handle     string    `json:"handle" db:"handle"`
}

// ValidHandle reports whether the handle matches the platform username format.
func ValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// GenerateVerificationCode returns a fixed-length code drawn from an
// unambiguous alphanumeric alphabet using a cryptographic source.
func GenerateVerificationCode() (string, error) {
	buf := make([]byte, CodeLength)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ChallengeRepository defines record-store operations for verification challenges.
type ChallengeRepository interface {
	// Create stores a new challenge.
	Create(ctx context.Context, ch *VerificationChallenge) error

	// GetPending returns the pending challenge for the pair, or a NOT_FOUND
	// domain error when none exists.
	GetPending(ctx context.Context, userID, handle string) (*VerificationChallenge, error)

	// Update persists a status transition.
	Update(ctx context.Context, ch *VerificationChallenge) error

	// SupersedePending marks any pending challenge for the pair as superseded.
	SupersedePending(ctx context.Context, userID, handle string) error

	// DeleteExpiredBefore physically reclaims terminal challenges whose expiry
	// precedes the given instant.
	DeleteExpiredBefore(ctx context.Context, t time.Time) error
}

// LinkedAccountRepository defines record-store operations for confirmed links.
type LinkedAccountRepository interface {
	Create(ctx context.Context, la *LinkedAccount) error
	GetByUserAndHandle(ctx context.Context, userID, handle string) (*LinkedAccount, error)
	ListByUser(ctx context.Context, userID string) ([]*LinkedAccount, error)
	Delete(ctx context.Context, userID, handle string) error
	Count(ctx context.Context) (int, error)
}
