package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/notewise-app/notewise/internal/database"
	"github.com/notewise-app/notewise/internal/events"
	mw "github.com/notewise-app/notewise/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Refresh  http.HandlerFunc
	Logout   http.HandlerFunc

	// Stateless generation
	GenerateSummary    http.HandlerFunc
	GenerateFlashcards http.HandlerFunc

	// Quota
	GetQuota http.HandlerFunc

	// Note handlers
	CreateNote              http.HandlerFunc
	ListNotes               http.HandlerFunc
	GetNote                 http.HandlerFunc
	UpdateNote              http.HandlerFunc
	DeleteNote              http.HandlerFunc
	GenerateNoteSummary     http.HandlerFunc
	GenerateNoteFlashcards  http.HandlerFunc
	NoteOwnershipMiddleware func(http.Handler) http.Handler

	// Usage history
	ListUsage http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
}

// Dependencies are the backends checked by the readiness probe. Events may be
// nil when the usage stream is disabled.
type Dependencies struct {
	DB     *pgxpool.Pool
	Redis  redis.Cmdable
	Events *events.Client
}

func NewRouter(deps Dependencies, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"nats":     "healthy",
		}
		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), deps.DB); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Redis.Ping(ctx).Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		// A broken stream degrades readiness without failing it.
		switch {
		case deps.Events == nil:
			health["nats"] = "not configured"
		case !deps.Events.Healthy():
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public), optionally rate-limited
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthRateLimiter != nil {
				r.Use(cfg.AuthRateLimiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/logout", h.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/generate", func(r chi.Router) {
				r.Post("/summary", h.GenerateSummary)
				r.Post("/flashcards", h.GenerateFlashcards)
			})

			r.Get("/quota", h.GetQuota)

			r.Route("/notes", func(r chi.Router) {
				r.Post("/", h.CreateNote)
				r.Get("/", h.ListNotes)

				r.Route("/{noteID}", func(r chi.Router) {
					r.Use(h.NoteOwnershipMiddleware)
					r.Get("/", h.GetNote)
					r.Put("/", h.UpdateNote)
					r.Delete("/", h.DeleteNote)
					r.Post("/summary", h.GenerateNoteSummary)
					r.Post("/flashcards", h.GenerateNoteFlashcards)
				})
			})

			r.Get("/usage", h.ListUsage)
		})
	})

	return r
}
