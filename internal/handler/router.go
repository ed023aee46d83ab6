package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raitha-mitra/inbox-sync/internal/middleware"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

// RouterConfig holds the cross-cutting settings of the view API.
type RouterConfig struct {
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string
}

// Handlers groups the view API handlers.
type Handlers struct {
	Health  *HealthHandler
	Inbox   *InboxHandler
	Thread  *ThreadHandler
	Compose *ComposeHandler
	Badges  *BadgeHandler
	Stream  *StreamHandler
}

// NewRouter builds the view API routes.
func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/view", h.Inbox.View)
		r.Get("/stream", h.Stream.Stream)

		r.Get("/inbox", h.Inbox.Inbox)
		r.Post("/inbox/refresh", h.Inbox.Refresh)

		r.Post("/threads/{userID}", h.Thread.Open)
		r.Route("/thread", func(r chi.Router) {
			r.Delete("/", h.Thread.Close)
			r.Put("/draft", h.Thread.SetDraft)
			r.Post("/messages", h.Thread.Send)
			r.Post("/block", h.Thread.RequestBlock)
			r.Post("/block/confirm", h.Thread.ConfirmBlock)
			r.Delete("/block", h.Thread.CancelBlock)
		})

		r.Route("/compose", func(r chi.Router) {
			r.Post("/", h.Compose.Open)
			r.Delete("/", h.Compose.Close)
			r.Get("/search", h.Compose.Search)
			r.Put("/recipient", h.Compose.SelectRecipient)
			r.Delete("/recipient", h.Compose.ClearRecipient)
			r.Post("/send", h.Compose.Send)
		})
		r.Post("/directory/message", h.Compose.MessageUser)

		r.Get("/badges", h.Badges.Get)
		r.Post("/badges/refresh", h.Badges.Refresh)

		r.Get("/notifications", h.Inbox.Notifications)
		r.Delete("/notifications/{id}", h.Badges.DismissNotification)
	})

	return r
}
