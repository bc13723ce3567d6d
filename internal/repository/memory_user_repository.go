package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mxteam/mediabot/internal/domain"
)

// memoryUserRepository provides an in-memory implementation of domain.UserRepository.
type memoryUserRepository struct {
	users map[string]*domain.User
	mutex sync.RWMutex
}

// NewMemoryUserRepository creates a new in-memory user repository.
func NewMemoryUserRepository() domain.UserRepository {
	return &memoryUserRepository{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepository) Upsert(_ context.Context, user *domain.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, ok := r.users[user.ID]; ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		return nil
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("USER_NOT_FOUND", "user not found")
	}
	cp := *user
	return &cp, nil
}

func (r *memoryUserRepository) SetBanned(_ context.Context, id string, banned bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.NewNotFoundError("USER_NOT_FOUND", "user not found")
	}
	user.Banned = banned
	return nil
}

func (r *memoryUserRepository) IncrementDownloadCount(_ context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.NewNotFoundError("USER_NOT_FOUND", "user not found")
	}
	user.DownloadCount++
	return nil
}

func (r *memoryUserRepository) Count(_ context.Context) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.users), nil
}

// memoryDownloadRepository provides an in-memory implementation of domain.DownloadRepository.
type memoryDownloadRepository struct {
	downloads []*domain.Download
	mutex     sync.RWMutex
}

// NewMemoryDownloadRepository creates a new in-memory download history repository.
func NewMemoryDownloadRepository() domain.DownloadRepository {
	return &memoryDownloadRepository{}
}

func (r *memoryDownloadRepository) Create(_ context.Context, d *domain.Download) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cp := *d
	r.downloads = append(r.downloads, &cp)
	return nil
}

func (r *memoryDownloadRepository) ListByUser(_ context.Context, userID string) ([]*domain.Download, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*domain.Download
	for _, d := range r.downloads {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryDownloadRepository) Count(_ context.Context) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.downloads), nil
}

func (r *memoryDownloadRepository) CountSince(_ context.Context, t time.Time) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	n := 0
	for _, d := range r.downloads {
		if !d.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

// memorySessionRecordRepository provides an in-memory implementation of
// domain.SessionRecordRepository.
type memorySessionRecordRepository struct {
	records map[string]*domain.SessionRecord
	mutex   sync.RWMutex
}

// NewMemorySessionRecordRepository creates a new in-memory session status repository.
func NewMemorySessionRecordRepository() domain.SessionRecordRepository {
	return &memorySessionRecordRepository{records: make(map[string]*domain.SessionRecord)}
}

func (r *memorySessionRecordRepository) Upsert(_ context.Context, rec *domain.SessionRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cp := *rec
	r.records[rec.AccountID] = &cp
	return nil
}

func (r *memorySessionRecordRepository) Get(_ context.Context, accountID string) (*domain.SessionRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rec, ok := r.records[accountID]
	if !ok {
		return nil, domain.NewNotFoundError("SESSION_RECORD_NOT_FOUND", "no session record for account")
	}
	cp := *rec
	return &cp, nil
}
