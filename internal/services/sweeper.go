package services

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically reclaims expired verification challenges and stale
// scratch directories. It backs up the per-request cleanup paths; it never
// replaces them.
type Sweeper struct {
	verification *VerificationService
	retrieval    *RetrievalService
	logger       *slog.Logger
	interval     time.Duration
	scratchAge   time.Duration
	done         chan struct{}
}

// SweeperConfig configures a Sweeper.
type SweeperConfig struct {
	Verification *VerificationService
	Retrieval    *RetrievalService
	Logger       *slog.Logger
	// Interval is the sweep cadence, 10 minutes by default.
	Interval time.Duration
	// ScratchMaxAge is how old a scratch directory must be before reclaim,
	// 24 hours by default.
	ScratchMaxAge time.Duration
}

// NewSweeper creates a sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.ScratchMaxAge == 0 {
		cfg.ScratchMaxAge = 24 * time.Hour
	}
	return &Sweeper{
		verification: cfg.Verification,
		retrieval:    cfg.Retrieval,
		logger:       cfg.Logger,
		interval:     cfg.Interval,
		scratchAge:   cfg.ScratchMaxAge,
		done:         make(chan struct{}),
	}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Done is closed when Run returns, for graceful shutdown ordering.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.verification != nil {
		if err := s.verification.SweepExpired(ctx); err != nil {
			s.logger.Warn("challenge sweep failed", "error", err)
		}
	}
	if s.retrieval != nil {
		if err := s.retrieval.SweepScratch(s.scratchAge); err != nil {
			s.logger.Warn("scratch sweep failed", "error", err)
		}
	}
}
