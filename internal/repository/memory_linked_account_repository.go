package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/mxteam/mediabot/internal/domain"
)

// memoryLinkedAccountRepository provides an in-memory implementation of
// domain.LinkedAccountRepository.
type memoryLinkedAccountRepository struct {
	accounts map[string]*domain.LinkedAccount
	mutex    sync.RWMutex
}

// NewMemoryLinkedAccountRepository creates a new in-memory linked account repository.
func NewMemoryLinkedAccountRepository() domain.LinkedAccountRepository {
	return &memoryLinkedAccountRepository{
		accounts: make(map[string]*domain.LinkedAccount),
	}
}

func pairKey(userID, handle string) string {
	return userID + "\x00" + handle
}

func (r *memoryLinkedAccountRepository) Create(_ context.Context, la *domain.LinkedAccount) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := pairKey(la.UserID, la.Handle)
	if _, exists := r.accounts[key]; exists {
		return domain.NewConflictError("LINK_EXISTS", "this handle is already linked for the user")
	}
	cp := *la
	r.accounts[key] = &cp
	return nil
}

func (r *memoryLinkedAccountRepository) GetByUserAndHandle(_ context.Context, userID, handle string) (*domain.LinkedAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	la, ok := r.accounts[pairKey(userID, handle)]
	if !ok {
		return nil, domain.NewNotFoundError("LINK_NOT_FOUND", "no linked account for this pair")
	}
	cp := *la
	return &cp, nil
}

func (r *memoryLinkedAccountRepository) ListByUser(_ context.Context, userID string) ([]*domain.LinkedAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*domain.LinkedAccount
	for _, la := range r.accounts {
		if la.UserID == userID {
			cp := *la
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VerifiedAt.After(out[j].VerifiedAt)
	})
	return out, nil
}

func (r *memoryLinkedAccountRepository) Delete(_ context.Context, userID, handle string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.accounts, pairKey(userID, handle))
	return nil
}

func (r *memoryLinkedAccountRepository) Count(_ context.Context) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.accounts), nil
}
