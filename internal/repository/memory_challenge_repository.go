package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mxteam/mediabot/internal/domain"
)

// memoryChallengeRepository provides an in-memory implementation of
// domain.ChallengeRepository.
type memoryChallengeRepository struct {
	challenges map[string]*domain.VerificationChallenge
	mutex      sync.RWMutex
}

// NewMemoryChallengeRepository creates a new in-memory challenge repository.
func NewMemoryChallengeRepository() domain.ChallengeRepository {
	return &memoryChallengeRepository{
		challenges: make(map[string]*domain.VerificationChallenge),
	}
}

func (r *memoryChallengeRepository) Create(_ context.Context, ch *domain.VerificationChallenge) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cp := *ch
	r.challenges[ch.ID] = &cp
	return nil
}

func (r *memoryChallengeRepository) GetPending(_ context.Context, userID, handle string) (*domain.VerificationChallenge, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var newest *domain.VerificationChallenge
	for _, ch := range r.challenges {
		if ch.UserID != userID || ch.TargetHandle != handle || ch.Status != domain.ChallengePending {
			continue
		}
		if newest == nil || ch.CreatedAt.After(newest.CreatedAt) {
			newest = ch
		}
	}
	if newest == nil {
		return nil, domain.NewNotFoundError("CHALLENGE_NOT_FOUND", "no pending challenge for this pair")
	}
	cp := *newest
	return &cp, nil
}

func (r *memoryChallengeRepository) Update(_ context.Context, ch *domain.VerificationChallenge) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.challenges[ch.ID]; !ok {
		return domain.NewNotFoundError("CHALLENGE_NOT_FOUND", "challenge not found")
	}
	cp := *ch
	r.challenges[ch.ID] = &cp
	return nil
}

func (r *memoryChallengeRepository) SupersedePending(_ context.Context, userID, handle string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, ch := range r.challenges {
		if ch.UserID == userID && ch.TargetHandle == handle && ch.Status == domain.ChallengePending {
			ch.Status = domain.ChallengeSuperseded
		}
	}
	return nil
}

func (r *memoryChallengeRepository) DeleteExpiredBefore(_ context.Context, t time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, ch := range r.challenges {
		if ch.ExpiresAt.Before(t) && ch.Status != domain.ChallengeConfirmed {
			delete(r.challenges, id)
		}
	}
	return nil
}
