package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notewise-app/notewise/internal/api"
	"github.com/notewise-app/notewise/internal/auth"
	"github.com/notewise-app/notewise/internal/config"
	"github.com/notewise-app/notewise/internal/database"
	"github.com/notewise-app/notewise/internal/events"
	"github.com/notewise-app/notewise/internal/generation"
	"github.com/notewise-app/notewise/internal/llm"
	mw "github.com/notewise-app/notewise/internal/middleware"
	"github.com/notewise-app/notewise/internal/notes"
	"github.com/notewise-app/notewise/internal/quota"
	iredis "github.com/notewise-app/notewise/internal/redis"
	"github.com/notewise-app/notewise/internal/server"
	"github.com/notewise-app/notewise/internal/usage"
	"github.com/notewise-app/notewise/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.Server.MigrationsPath); err != nil {
		return err
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// NATS (optional): usage events are dropped when it is not configured.
	var (
		eventsClient *events.Client
		publisher    generation.UsagePublisher
	)
	if cfg.NATS.URL != "" {
		eventsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer eventsClient.Close()
		publisher = events.NewPublisher(eventsClient.JetStream())
	}

	// Quota
	var store quota.Store
	switch cfg.Quota.Store {
	case config.QuotaStoreRedis:
		store = quota.NewRedisStore(redisClient, quota.LimitsFrom(cfg.Quota))
	default:
		store = quota.NewPostgresStore(pool, quota.LimitsFrom(cfg.Quota))
	}
	quotaSvc := quota.NewService(store, cfg.Quota)
	quotaHandler := quota.NewHandler(quotaSvc)
	slog.Info("quota gate configured",
		"store", cfg.Quota.Store, "max_daily_uses", cfg.Quota.MaxDailyUses, "window", cfg.Quota.Window)

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userSvc := users.NewService(users.NewRepository(pool))
	authHandler := auth.NewHandler(authSvc, userSvc, quotaSvc)

	// Generation
	llmClient := llm.NewOpenAIClient(cfg.LLM)
	genSvc := generation.NewService(quotaSvc, llmClient, publisher, cfg.Generation)
	genHandler := generation.NewHandler(genSvc)

	// Notes
	noteSvc := notes.NewService(notes.NewRepository(pool), genSvc)
	noteHandler := notes.NewHandler(noteSvc)

	// Usage history
	usageRepo := usage.NewRepository(pool)
	usageHandler := usage.NewHandler(usageRepo)

	rateLimiter := mw.NewRateLimiter(redisClient, "auth", cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.AuthWindowSec)

	router := api.NewRouter(
		api.Dependencies{DB: pool, Redis: redisClient, Events: eventsClient},
		api.RouterConfig{
			CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
			AuthRateLimiter:    rateLimiter.Middleware,
		},
		api.HandlerSet{
			Register: authHandler.Register,
			Login:    authHandler.Login,
			Refresh:  authHandler.Refresh,
			Logout:   authHandler.Logout,

			GenerateSummary:    genHandler.Summary,
			GenerateFlashcards: genHandler.Flashcards,

			GetQuota: quotaHandler.GetStatus,

			CreateNote:              noteHandler.Create,
			ListNotes:               noteHandler.List,
			GetNote:                 noteHandler.Get,
			UpdateNote:              noteHandler.Update,
			DeleteNote:              noteHandler.Delete,
			GenerateNoteSummary:     noteHandler.Summary,
			GenerateNoteFlashcards:  noteHandler.Flashcards,
			NoteOwnershipMiddleware: noteHandler.OwnershipMiddleware,

			ListUsage: usageHandler.List,

			AuthMiddleware: auth.Middleware(authSvc),
		},
	)

	srv := server.New(cfg.Server, router, writeTimeout(cfg.LLM))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if eventsClient != nil {
		consumer := usage.NewConsumer(usageRepo, eventsClient.JetStream())
		g.Go(func() error {
			// A consumer failure leaves the API serving.
			if err := consumer.Run(gctx); err != nil {
				slog.Error("usage consumer stopped", "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// writeTimeout covers a generation request that uses every provider retry.
func writeTimeout(cfg config.LLMConfig) time.Duration {
	attempts := time.Duration(cfg.MaxRetries + 1)
	return cfg.Timeout*attempts + 15*time.Second
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
