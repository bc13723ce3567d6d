package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateGovernor is the shared admission gate applied per requesting user
// before any retrieval begins. Advisory backpressure for a single
// user-facing surface, not a distributed quota system.
type RateGovernor interface {
	// Admit reports whether the user may proceed now. Admission updates the
	// user's window atomically; a rejected call has no side effect.
	Admit(ctx context.Context, userID string) bool

	// Reset clears the user's window, for administrative overrides.
	Reset(ctx context.Context, userID string)
}

// intervalGovernor enforces a fixed minimum interval between admitted
// requests per user, keyed on a last-admitted timestamp.
type intervalGovernor struct {
	lastAdmitted map[string]time.Time
	now          func() time.Time
	interval     time.Duration
	mu           sync.Mutex
}

// NewIntervalGovernor creates an in-memory rate governor with the given
// minimum interval between admissions. A zero nowFn uses the wall clock.
func NewIntervalGovernor(interval time.Duration, nowFn func() time.Time) RateGovernor {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &intervalGovernor{
		lastAdmitted: make(map[string]time.Time),
		interval:     interval,
		now:          nowFn,
	}
}

func (g *intervalGovernor) Admit(_ context.Context, userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.lastAdmitted[userID]; ok && now.Sub(last) < g.interval {
		return false
	}
	g.lastAdmitted[userID] = now
	return true
}

func (g *intervalGovernor) Reset(_ context.Context, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.lastAdmitted, userID)
}

// redisGovernor implements the same admission gate on Redis, for deployments
// running more than one bot process against the same user base.
type redisGovernor struct {
	client    *redis.Client
	logger    *slog.Logger
	keyPrefix string
	interval  time.Duration
}

// NewRedisGovernor creates a Redis-backed rate governor.
func NewRedisGovernor(client *redis.Client, keyPrefix string, interval time.Duration, logger *slog.Logger) RateGovernor {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisGovernor{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		interval:  interval,
	}
}

func (g *redisGovernor) key(userID string) string {
	return fmt.Sprintf("%s:%s", g.keyPrefix, userID)
}

func (g *redisGovernor) Admit(ctx context.Context, userID string) bool {
	// SET NX PX is atomic: of two racing admits only one sets the key.
	ok, err := g.client.SetNX(ctx, g.key(userID), 1, g.interval).Result()
	if err != nil {
		// Admission is advisory; fail open rather than blocking all users on
		// a Redis outage.
		g.logger.Warn("rate governor redis error, admitting", "user_id", userID, "error", err)
		return true
	}
	return ok
}

func (g *redisGovernor) Reset(ctx context.Context, userID string) {
	if err := g.client.Del(ctx, g.key(userID)).Err(); err != nil {
		g.logger.Warn("rate governor reset failed", "user_id", userID, "error", err)
	}
}
