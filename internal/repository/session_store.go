package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mxteam/mediabot/internal/domain"
)

// fileSessionStore persists one opaque session blob per account as a file.
// Replacement is atomic: the blob is written to a temp file in the same
// directory and renamed over the old one, so a crashed write never clobbers
// a previously valid session.
type fileSessionStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileSessionStore creates a file-backed session store rooted at dir.
func NewFileSessionStore(dir string) (domain.SessionStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &fileSessionStore{dir: dir}, nil
}

func (s *fileSessionStore) path(accountID string) string {
	return filepath.Join(s.dir, accountID+".session")
}

func (s *fileSessionStore) Save(_ context.Context, accountID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, accountID+".session.*")
	if err != nil {
		return domain.NewInternalError("SESSION_WRITE_FAILED", "failed to stage session blob", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewInternalError("SESSION_WRITE_FAILED", "failed to write session blob", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return domain.NewInternalError("SESSION_WRITE_FAILED", "failed to sync session blob", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return domain.NewInternalError("SESSION_WRITE_FAILED", "failed to close session blob", err)
	}
	if err := os.Rename(tmpName, s.path(accountID)); err != nil {
		os.Remove(tmpName)
		return domain.NewInternalError("SESSION_WRITE_FAILED", "failed to replace session blob", err)
	}
	return nil
}

func (s *fileSessionStore) Load(_ context.Context, accountID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.path(accountID))
	if os.IsNotExist(err) {
		return nil, domain.NewNotFoundError("SESSION_NOT_FOUND", "no stored session for account")
	}
	if err != nil {
		return nil, domain.NewInternalError("SESSION_READ_FAILED", "failed to read session blob", err)
	}
	return blob, nil
}

func (s *fileSessionStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(accountID)); err != nil && !os.IsNotExist(err) {
		return domain.NewInternalError("SESSION_DELETE_FAILED", "failed to delete session blob", err)
	}
	return nil
}

// memorySessionStore is an in-memory session store for tests.
type memorySessionStore struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore() domain.SessionStore {
	return &memorySessionStore{blobs: make(map[string][]byte)}
}

func (s *memorySessionStore) Save(_ context.Context, accountID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.blobs[accountID] = cp
	return nil
}

func (s *memorySessionStore) Load(_ context.Context, accountID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[accountID]
	if !ok {
		return nil, domain.NewNotFoundError("SESSION_NOT_FOUND", "no stored session for account")
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (s *memorySessionStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, accountID)
	return nil
}
