package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/mxteam/mediabot/internal/domain"
)

// UserService tracks the bot's user base: registration on first contact and
// the operator's ban switch.
type UserService struct {
	users  domain.UserRepository
	logger *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(users domain.UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, logger: logger}
}

// RegisterContact upserts the user row on any interaction. Registration is
// advisory; a store failure is logged and the interaction proceeds.
func (s *UserService) RegisterContact(ctx context.Context, user *domain.User) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.logger.Warn("failed to register user contact", "user_id", user.ID, "error", err)
	}
}

// EnsureAllowed rejects banned users. Unknown users are allowed; they are
// registered on first contact.
func (s *UserService) EnsureAllowed(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if user.Banned {
		return &domain.Error{
			Type:    domain.PolicyError,
			Code:    "USER_BANNED",
			Message: "user is banned from the service",
		}
	}
	return nil
}

// SetBanned flips the user's ban switch.
func (s *UserService) SetBanned(ctx context.Context, userID string, banned bool) error {
	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return err
	}
	s.logger.Info("user ban state changed", "user_id", userID, "banned", banned)
	return nil
}
