// Package config provides application configuration management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config defines the application-wide configuration interface.
type Config interface {
	GetServerPort() string
	GetDatabasePath() string
	GetEnvironment() string
	GetLogLevel() string
	IsProduction() bool
}

// SecurityConfig covers operator authentication.
type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTExpiration() time.Duration
	GetOperatorPasswordHash() string
}

// PlatformConfig covers the managed platform account and its client behavior.
type PlatformConfig interface {
	GetBotAccountID() string
	GetSessionDir() string
	GetPlatformTimeout() time.Duration
}

// RetrievalConfig covers the media retrieval pipeline.
type RetrievalConfig interface {
	GetScratchDir() string
	GetSizeCeiling() int64
	GetDownloadTimeout() time.Duration
}

// PolicyConfig covers verification and admission policy.
type PolicyConfig interface {
	GetChallengeTTL() time.Duration
	GetRateInterval() time.Duration
	GetSweepInterval() time.Duration
	GetScratchMaxAge() time.Duration
}

// RedisConfig covers the optional shared rate-limit backend.
type RedisConfig interface {
	GetRedisAddr() string
	UseRedis() bool
}

// AppConfig implements all configuration interfaces.
type AppConfig struct {
	serverPort           string
	databasePath         string
	jwtSecret            string
	operatorPasswordHash string
	botAccountID         string
	sessionDir           string
	scratchDir           string
	redisAddr            string
	environment          string
	logLevel             string
	sizeCeiling          int64
	jwtExpiration        time.Duration
	platformTimeout      time.Duration
	downloadTimeout      time.Duration
	challengeTTL         time.Duration
	rateInterval         time.Duration
	sweepInterval        time.Duration
	scratchMaxAge        time.Duration
}

// NewConfig creates a configuration instance with defaults overridden from
// the environment. A .env file in the working directory is loaded first when
// present; real environment variables win over file entries.
func NewConfig() *AppConfig {
	_ = godotenv.Load()

	return &AppConfig{
		serverPort:           getEnvString("SERVER_PORT", "8080"),
		databasePath:         getEnvString("DATABASE_PATH", "data/mediabot.db"),
		jwtSecret:            getEnvString("JWT_SECRET", ""),
		operatorPasswordHash: getEnvString("OPERATOR_PASSWORD_HASH", ""),
		botAccountID:         getEnvString("BOT_ACCOUNT_ID", ""),
		sessionDir:           getEnvString("SESSION_DIR", "data/sessions"),
		scratchDir:           getEnvString("SCRATCH_DIR", "data/scratch"),
		redisAddr:            getEnvString("REDIS_ADDR", ""),
		environment:          getEnvString("ENVIRONMENT", "development"),
		logLevel:             getEnvString("LOG_LEVEL", "info"),
		sizeCeiling:          getEnvInt64("SIZE_CEILING_BYTES", 50<<20),
		jwtExpiration:        getEnvDuration("JWT_EXPIRATION", "24h"),
		platformTimeout:      getEnvDuration("PLATFORM_TIMEOUT", "30s"),
		downloadTimeout:      getEnvDuration("DOWNLOAD_TIMEOUT", "5m"),
		challengeTTL:         getEnvDuration("CHALLENGE_TTL", "30m"),
		rateInterval:         getEnvDuration("RATE_INTERVAL", "5s"),
		sweepInterval:        getEnvDuration("SWEEP_INTERVAL", "10m"),
		scratchMaxAge:        getEnvDuration("SCRATCH_MAX_AGE", "24h"),
	}
}

// GetServerPort returns the HTTP listen port.
func (c *AppConfig) GetServerPort() string { return c.serverPort }

// GetDatabasePath returns the SQLite database file path.
func (c *AppConfig) GetDatabasePath() string { return c.databasePath }

// GetJWTSecret returns the operator token signing secret.
func (c *AppConfig) GetJWTSecret() string { return c.jwtSecret }

// GetJWTExpiration returns the operator token lifetime.
func (c *AppConfig) GetJWTExpiration() time.Duration { return c.jwtExpiration }

// GetOperatorPasswordHash returns the bcrypt hash of the operator password.
func (c *AppConfig) GetOperatorPasswordHash() string { return c.operatorPasswordHash }

// GetBotAccountID returns the managed platform account identifier.
func (c *AppConfig) GetBotAccountID() string { return c.botAccountID }

// GetSessionDir returns where session blobs are persisted.
func (c *AppConfig) GetSessionDir() string { return c.sessionDir }

// GetPlatformTimeout returns the bound on platform metadata calls.
func (c *AppConfig) GetPlatformTimeout() time.Duration { return c.platformTimeout }

// GetScratchDir returns the root of per-request download directories.
func (c *AppConfig) GetScratchDir() string { return c.scratchDir }

// GetSizeCeiling returns the per-item download byte limit.
func (c *AppConfig) GetSizeCeiling() int64 { return c.sizeCeiling }

// GetDownloadTimeout returns the bound on a single media transfer.
func (c *AppConfig) GetDownloadTimeout() time.Duration { return c.downloadTimeout }

// GetChallengeTTL returns the verification window length.
func (c *AppConfig) GetChallengeTTL() time.Duration { return c.challengeTTL }

// GetRateInterval returns the minimum interval between admitted requests per user.
func (c *AppConfig) GetRateInterval() time.Duration { return c.rateInterval }

// GetSweepInterval returns the background sweep cadence.
func (c *AppConfig) GetSweepInterval() time.Duration { return c.sweepInterval }

// GetScratchMaxAge returns how old scratch directories may grow before reclaim.
func (c *AppConfig) GetScratchMaxAge() time.Duration { return c.scratchMaxAge }

// GetRedisAddr returns the Redis address for the shared rate governor.
func (c *AppConfig) GetRedisAddr() string { return c.redisAddr }

// UseRedis reports whether a Redis-backed rate governor is configured.
func (c *AppConfig) UseRedis() bool { return c.redisAddr != "" }

// GetEnvironment returns the application environment.
func (c *AppConfig) GetEnvironment() string { return c.environment }

// GetLogLevel returns the log level.
func (c *AppConfig) GetLogLevel() string { return c.logLevel }

// IsProduction reports whether the application runs in production.
func (c *AppConfig) IsProduction() bool { return c.environment == "production" }

// Validate checks that required configuration is present.
func (c *AppConfig) Validate() error {
	if c.jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.operatorPasswordHash == "" {
		return fmt.Errorf("OPERATOR_PASSWORD_HASH is required")
	}
	if c.botAccountID == "" {
		return fmt.Errorf("BOT_ACCOUNT_ID is required")
	}
	if c.sizeCeiling <= 0 {
		return fmt.Errorf("SIZE_CEILING_BYTES must be positive")
	}
	if c.rateInterval < 0 {
		return fmt.Errorf("RATE_INTERVAL must not be negative")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	parsed, _ := time.ParseDuration(defaultValue)
	return parsed
}
