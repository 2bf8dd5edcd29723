package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Provider
	if c.LLM.APIKey == "" {
		errs = append(errs, "LLM_API_KEY is required")
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, "LLM_TIMEOUT must be positive")
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 3 {
		errs = append(errs, fmt.Sprintf("LLM_MAX_RETRIES must be 0–3, got %d", c.LLM.MaxRetries))
	}

	// Quota
	switch c.Quota.Store {
	case QuotaStorePostgres, QuotaStoreRedis:
	default:
		errs = append(errs, fmt.Sprintf("QUOTA_STORE must be %q or %q, got %q", QuotaStorePostgres, QuotaStoreRedis, c.Quota.Store))
	}
	if c.Quota.MaxDailyUses < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_MAX_DAILY_USES must be at least 1, got %d", c.Quota.MaxDailyUses))
	}
	if c.Quota.Window < time.Minute {
		errs = append(errs, "QUOTA_WINDOW must be at least 1m")
	}
	if c.Quota.Timeout <= 0 {
		errs = append(errs, "QUOTA_TIMEOUT must be positive")
	}

	// Word thresholds
	if c.Generation.MinWordsSummary < 1 {
		errs = append(errs, "GENERATION_MIN_WORDS_SUMMARY must be at least 1")
	}
	if c.Generation.MinWordsFlashcards < 1 {
		errs = append(errs, "GENERATION_MIN_WORDS_FLASHCARDS must be at least 1")
	}

	// Event stream: warn only
	if c.NATS.URL == "" {
		slog.Warn("NATS_URL is empty, usage history will not be recorded")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
