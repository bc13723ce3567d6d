// Package repository provides record-store implementations of the domain
// repository interfaces: SQLite via dbx for production and in-memory
// equivalents for tests.
package repository

import (
	"fmt"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite" // database/sql driver
)

// Open opens the SQLite record store at path.
func Open(path string) (*dbx.DB, error) {
	db, err := dbx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	return db, nil
}

// InitSchema creates the record-store tables when they do not exist yet.
func InitSchema(db *dbx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			banned BOOLEAN NOT NULL DEFAULT FALSE,
			download_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS verification_challenges (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			target_handle TEXT NOT NULL,
			code TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_pair
			ON verification_challenges (user_id, target_handle, status)`,
		`CREATE TABLE IF NOT EXISTS linked_accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			handle TEXT NOT NULL,
			verified_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, handle)
		)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			media_kind TEXT NOT NULL,
			source_url TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_records (
			account_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			last_validated TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.NewQuery(stmt).Execute(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
