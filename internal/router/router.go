package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"resume-relay/internal/handlers"
	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/middleware"
	"resume-relay/internal/websocket"
)

// Deps collects everything the router mounts. Limiter and AdminAuth are
// optional: a nil Limiter disables rate limiting and a nil AdminAuth leaves
// the debug routes unmounted.
type Deps struct {
	Chat           *handlers.ChatHandler
	Contact        *handlers.ContactHandler
	System         *handlers.SystemHandler
	Debug          *handlers.DebugHandler
	WSHub          *websocket.Hub
	Limiter        *middleware.RateLimiter
	AdminAuth      *middleware.AdminAuth
	Metrics        *metrics.Metrics
	Logger         *logging.Logger
	AllowedOrigins []string
	// TrustProxy lets forwarded headers set the client address used as the
	// rate limit key.
	TrustProxy bool
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if d.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(d.Logger, d.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	limit := func(h http.HandlerFunc) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.Middleware(h)
	}

	r.Get("/health", d.System.Live)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", limit(d.Chat.Chat))
		r.Method(http.MethodPost, "/contact", limit(d.Contact.Submit))
		r.Get("/healthz", d.System.UpstreamHealth)
		r.Get("/config", d.System.PublicConfig)

		// ──── WebSocket ────
		if d.WSHub != nil {
			r.Method(http.MethodGet, "/chat/ws", limit(d.WSHub.HandleChat))
		}

		// ──── Debug Routes (admin) ────
		if d.AdminAuth != nil && d.Debug != nil {
			r.Route("/debug", func(r chi.Router) {
				r.Use(d.AdminAuth.Middleware)
				r.Get("/resume", d.Debug.Resume)
				r.Post("/reload-resume", d.Debug.ReloadResume)
				r.Get("/retrieve", d.Debug.Retrieve)
			})
		}
	})

	return r
}
