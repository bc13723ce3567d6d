// Package main provides the entry point for the media bot server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mxteam/mediabot/internal/api"
	"github.com/mxteam/mediabot/internal/config"
	"github.com/mxteam/mediabot/internal/platform"
	"github.com/mxteam/mediabot/internal/repository"
	"github.com/mxteam/mediabot/internal/services"
)

// platformClientFactory builds the authenticated platform client. Deployments
// link their client implementation by replacing this factory.
var platformClientFactory platform.ClientFactory = platform.NewUnconfiguredClient

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := repository.Open(cfg.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("database close failed", "error", closeErr)
		}
	}()
	if err := repository.InitSchema(db); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	sessionStore, err := repository.NewFileSessionStore(cfg.GetSessionDir())
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}

	users := repository.NewUserRepository(db)
	challenges := repository.NewChallengeRepository(db)
	links := repository.NewLinkedAccountRepository(db)
	downloads := repository.NewDownloadRepository(db)
	sessionRecords := repository.NewSessionRecordRepository(db)

	userSvc := services.NewUserService(users, logger)

	sessions := services.NewSessionManager(services.SessionManagerConfig{
		Store:       sessionStore,
		Records:     sessionRecords,
		Factory:     platformClientFactory,
		Logger:      logger,
		CallTimeout: cfg.GetPlatformTimeout(),
	})

	verification := services.NewVerificationService(services.VerificationConfig{
		Challenges:   challenges,
		Links:        links,
		Sessions:     sessions,
		Logger:       logger,
		BotAccountID: cfg.GetBotAccountID(),
		ChallengeTTL: cfg.GetChallengeTTL(),
	})

	retrieval := services.NewRetrievalService(services.RetrievalConfig{
		Sessions:        sessions,
		Fallback:        platform.NewYTDLPEngine(""),
		Extractor:       platform.NewFFmpegExtractor(""),
		Governor:        newGovernor(cfg, logger),
		UserService:     userSvc,
		Downloads:       downloads,
		Users:           users,
		Logger:          logger,
		BotAccountID:    cfg.GetBotAccountID(),
		ScratchDir:      cfg.GetScratchDir(),
		SizeCeiling:     cfg.GetSizeCeiling(),
		InfoTimeout:     cfg.GetPlatformTimeout(),
		DownloadTimeout: cfg.GetDownloadTimeout(),
	})

	sweeper := services.NewSweeper(services.SweeperConfig{
		Verification:  verification,
		Retrieval:     retrieval,
		Logger:        logger,
		Interval:      cfg.GetSweepInterval(),
		ScratchMaxAge: cfg.GetScratchMaxAge(),
	})
	go sweeper.Run(ctx)

	operatorAuth := services.NewOperatorAuthService(cfg)
	render := api.NewErrorRenderer(logger)
	admin := api.NewAdminHandler(operatorAuth, sessions, userSvc, users, downloads, links, render)

	router := api.NewRouter(api.RouterDeps{
		Config: cfg,
		Auth:   operatorAuth,
		Admin:  admin,
	})

	server := &http.Server{
		Addr:         ":" + cfg.GetServerPort(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr, "environment", cfg.GetEnvironment())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	select {
	case <-sweeper.Done():
	case <-shutdownCtx.Done():
	}
	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.GetLogLevel() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newGovernor(cfg *config.AppConfig, logger *slog.Logger) services.RateGovernor {
	if cfg.UseRedis() {
		client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		return services.NewRedisGovernor(client, "mediabot:rate", cfg.GetRateInterval(), logger)
	}
	return services.NewIntervalGovernor(cfg.GetRateInterval(), nil)
}
