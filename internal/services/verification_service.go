package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mxteam/mediabot/internal/domain"
)

// CheckResult is the outcome of one verification poll.
type CheckResult string

const (
	// CheckConfirmed means the matching DM was found and the link now exists.
	CheckConfirmed CheckResult = "confirmed"
	// CheckStillPending means no matching DM yet and the window is still open.
	CheckStillPending CheckResult = "still_pending"
	// CheckExpired means the window elapsed without a matching DM.
	CheckExpired CheckResult = "expired"
	// CheckNotFound means no challenge exists for the pair.
	CheckNotFound CheckResult = "not_found"
)

// dmScanLimit bounds how many recent messages from the claimed handle are
// inspected per poll.
const dmScanLimit = 50

// VerificationService drives the proof-of-ownership state machine: it issues
// one-time codes and confirms them by reading the bot account's inbox through
// the session manager's authenticated client.
type VerificationService struct {
	challenges domain.ChallengeRepository
	links      domain.LinkedAccountRepository
	sessions   *SessionManager
	logger     *slog.Logger
	// botAccountID is the managed account whose inbox receives the codes.
	botAccountID string
	challengeTTL time.Duration
	pollInterval time.Duration
	now          func() time.Time
}

// VerificationConfig configures a VerificationService.
type VerificationConfig struct {
	Challenges   domain.ChallengeRepository
	Links        domain.LinkedAccountRepository
	Sessions     *SessionManager
	Logger       *slog.Logger
	BotAccountID string
	// ChallengeTTL is the verification window, 30 minutes by default.
	ChallengeTTL time.Duration
	// PollInterval paces AwaitConfirmation's inbox re-checks.
	PollInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewVerificationService creates a verification service.
func NewVerificationService(cfg VerificationConfig) *VerificationService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ChallengeTTL == 0 {
		cfg.ChallengeTTL = 30 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &VerificationService{
		challenges:   cfg.Challenges,
		links:        cfg.Links,
		sessions:     cfg.Sessions,
		logger:       cfg.Logger,
		botAccountID: cfg.BotAccountID,
		challengeTTL: cfg.ChallengeTTL,
		pollInterval: cfg.PollInterval,
		now:          cfg.Now,
	}
}

// IssueChallenge generates a fresh code for the (user, handle) pair. Any
// pending challenge for the same pair is superseded: its code stops
// confirming from this point on. Delivering the code to the user is the
// caller's responsibility.
func (s *VerificationService) IssueChallenge(ctx context.Context, userID, handle string) (*domain.VerificationChallenge, error) {
	if !domain.ValidHandle(handle) {
		return nil, domain.NewValidationError("INVALID_HANDLE", "target handle has an invalid format",
			map[string]any{"field": "handle"})
	}
	if _, err := s.links.GetByUserAndHandle(ctx, userID, handle); err == nil {
		return nil, domain.NewConflictError("ALREADY_LINKED", "this handle is already linked for the user")
	}

	if err := s.challenges.SupersedePending(ctx, userID, handle); err != nil {
		return nil, err
	}

	code, err := domain.GenerateVerificationCode()
	if err != nil {
		return nil, domain.NewInternalError("CODE_GENERATION_FAILED", "failed to generate verification code", err)
	}

	now := s.now()
	ch := &domain.VerificationChallenge{
		ID:           uuid.New().String(),
		UserID:       userID,
		TargetHandle: handle,
		Code:         code,
		Status:       domain.ChallengePending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.challengeTTL),
	}
	if err := s.challenges.Create(ctx, ch); err != nil {
		return nil, err
	}
	s.logger.Info("verification challenge issued", "user_id", userID, "handle", handle, "expires_at", ch.ExpiresAt)
	return ch, nil
}

// CheckVerification polls the bot inbox for the pair's pending code. The scan
// is idempotent: users may invoke it repeatedly while waiting. A message
// confirms only on an exact, case-sensitive match of the stored code, sent by
// the claimed handle.
func (s *VerificationService) CheckVerification(ctx context.Context, userID, handle string) (CheckResult, error) {
	// An already-confirmed pair keeps answering Confirmed.
	if _, err := s.links.GetByUserAndHandle(ctx, userID, handle); err == nil {
		return CheckConfirmed, nil
	}

	ch, err := s.challenges.GetPending(ctx, userID, handle)
	if err != nil {
		if isNotFound(err) {
			return CheckNotFound, nil
		}
		return "", err
	}

	now := s.now()
	if ch.IsExpired(now) {
		ch.Expire()
		if err := s.challenges.Update(ctx, ch); err != nil {
			return "", err
		}
		return CheckExpired, nil
	}

	client, err := s.sessions.GetAuthenticatedClient(s.botAccountID)
	if err != nil {
		return "", err
	}

	messages, err := client.DirectMessagesFrom(ctx, handle, dmScanLimit)
	if err != nil {
		return "", translatePlatformError(err)
	}

	matched := false
	for _, msg := range messages {
		if msg.Text == ch.Code {
			matched = true
			break
		}
	}
	if !matched {
		return CheckStillPending, nil
	}

	if !ch.Confirm(now) {
		// Raced with expiry between the reads above.
		return CheckExpired, nil
	}
	if err := s.challenges.Update(ctx, ch); err != nil {
		return "", err
	}
	link := &domain.LinkedAccount{
		ID:         uuid.New().String(),
		UserID:     userID,
		Handle:     handle,
		VerifiedAt: now,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return "", err
	}
	s.logger.Info("account ownership confirmed", "user_id", userID, "handle", handle)
	return CheckConfirmed, nil
}

// AwaitConfirmation is the bounded-wait variant of CheckVerification: it
// re-checks the inbox on a fixed cadence until the challenge resolves or ctx
// expires. Confirmation requires an inbox read, so this is a paced poll
// rather than a pure condition wait.
func (s *VerificationService) AwaitConfirmation(ctx context.Context, userID, handle string) (CheckResult, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		result, err := s.CheckVerification(ctx, userID, handle)
		if err != nil {
			return "", err
		}
		if result != CheckStillPending {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return CheckStillPending, nil
		case <-ticker.C:
		}
	}
}

// ListLinkedAccounts returns the user's confirmed links.
func (s *VerificationService) ListLinkedAccounts(ctx context.Context, userID string) ([]*domain.LinkedAccount, error) {
	return s.links.ListByUser(ctx, userID)
}

// Unlink removes a confirmed link at the owning user's request.
func (s *VerificationService) Unlink(ctx context.Context, userID, handle string) error {
	return s.links.Delete(ctx, userID, handle)
}

// SweepExpired marks and physically reclaims challenges past their window.
func (s *VerificationService) SweepExpired(ctx context.Context) error {
	return s.challenges.DeleteExpiredBefore(ctx, s.now())
}

// HasVerifiedAccount reports whether the user holds at least one confirmed link.
func (s *VerificationService) HasVerifiedAccount(ctx context.Context, userID string) (bool, error) {
	links, err := s.links.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(links) > 0, nil
}
