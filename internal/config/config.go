package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	LLM        LLMConfig
	Quota      QuotaConfig
	Generation GenerationConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MigrationsPath string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig configures the usage event stream. An empty URL disables it.
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// LLMConfig configures the OpenAI-compatible text generation provider.
type LLMConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Quota store backends.
const (
	QuotaStorePostgres = "postgres"
	QuotaStoreRedis    = "redis"
)

type QuotaConfig struct {
	Store        string
	MaxDailyUses int
	Window       time.Duration
	Timeout      time.Duration
	ChargeSignup bool
}

type GenerationConfig struct {
	MinWordsSummary    int
	MinWordsFlashcards int
}

type RateLimitConfig struct {
	AuthMaxRequests int
	AuthWindowSec   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           k.String("server.host"),
			Port:           k.Int("server.port"),
			MigrationsPath: k.String("migrations.path"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		LLM: LLMConfig{
			APIKey:     k.String("llm.api.key"),
			BaseURL:    k.String("llm.base.url"),
			Model:      k.String("llm.model"),
			MaxRetries: -1,
		},
		Quota: QuotaConfig{
			Store:        strings.ToLower(k.String("quota.store")),
			MaxDailyUses: k.Int("quota.max.daily.uses"),
			ChargeSignup: true,
		},
		Generation: GenerationConfig{
			MinWordsSummary:    k.Int("generation.min.words.summary"),
			MinWordsFlashcards: k.Int("generation.min.words.flashcards"),
		},
		RateLimit: RateLimitConfig{
			AuthMaxRequests: k.Int("auth.rate.limit.max"),
			AuthWindowSec:   k.Int("auth.rate.limit.window.sec"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if k.Exists("llm.max.retries") {
		cfg.LLM.MaxRetries = k.Int("llm.max.retries")
	}
	if k.Exists("quota.charge.signup") {
		cfg.Quota.ChargeSignup = k.Bool("quota.charge.signup")
	}
	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MigrationsPath == "" {
		cfg.Server.MigrationsPath = "migrations"
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "notewise"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "notewise"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-3.5-turbo"
	}
	if cfg.LLM.MaxRetries < 0 {
		cfg.LLM.MaxRetries = 1
	}
	if cfg.Quota.Store == "" {
		cfg.Quota.Store = QuotaStorePostgres
	}
	if cfg.Quota.MaxDailyUses == 0 {
		cfg.Quota.MaxDailyUses = 5
	}
	if cfg.Generation.MinWordsSummary == 0 {
		cfg.Generation.MinWordsSummary = 50
	}
	if cfg.Generation.MinWordsFlashcards == 0 {
		cfg.Generation.MinWordsFlashcards = 70
	}
	if cfg.RateLimit.AuthMaxRequests == 0 {
		cfg.RateLimit.AuthMaxRequests = 10
	}
	if cfg.RateLimit.AuthWindowSec == 0 {
		cfg.RateLimit.AuthWindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	if cfg.JWT.AccessExpiry, err = parseDuration(k, "jwt.access.expiry", "15m"); err != nil {
		return nil, err
	}
	if cfg.JWT.RefreshExpiry, err = parseDuration(k, "jwt.refresh.expiry", "168h"); err != nil {
		return nil, err
	}
	if cfg.LLM.Timeout, err = parseDuration(k, "llm.timeout", "30s"); err != nil {
		return nil, err
	}
	if cfg.Quota.Window, err = parseDuration(k, "quota.window", "24h"); err != nil {
		return nil, err
	}
	if cfg.Quota.Timeout, err = parseDuration(k, "quota.timeout", "3s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(k *koanf.Koanf, key, fallback string) (time.Duration, error) {
	s := k.String(key)
	if s == "" {
		s = fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", strings.ReplaceAll(key, ".", " "), err)
	}
	return d, nil
}
