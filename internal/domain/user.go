// Package domain contains business entities and interfaces for the media bot core.
package domain

import (
	"context"
	"time"
)

// User represents a bot end user as recorded in the record store.
type User struct {
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	ID            string    `json:"id" db:"id"`
	Username      string    `json:"username" db:"username"`
	FirstName     string    `json:"first_name" db:"first_name"`
	DownloadCount int       `json:"download_count" db:"download_count"`
	Banned        bool      `json:"banned" db:"banned"`
}

// UserRepository defines record-store operations for bot users.
type UserRepository interface {
	// Upsert creates the user or refreshes its mutable profile fields.
	Upsert(ctx context.Context, user *User) error

	// GetByID retrieves a user by identifier.
	GetByID(ctx context.Context, id string) (*User, error)

	// SetBanned flips the ban flag for a user.
	SetBanned(ctx context.Context, id string, banned bool) error

	// IncrementDownloadCount bumps the user's lifetime download counter.
	IncrementDownloadCount(ctx context.Context, id string) error

	// Count returns the total number of known users.
	Count(ctx context.Context) (int, error)
}
