package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains everything needed to construct the HTTP
// router. Designed for dependency injection: tests pass a coordinator
// with a fake clock and a generous rate limit, no hub required.
type RouterConfig struct {
	// Coordinator is the authoritative game registry (required).
	Coordinator *Coordinator

	// Hub is optional; when present the /ws route is mounted and REST
	// mutations push lobby snapshots to subscribers.
	Hub *Hub

	// RateLimiter is an optional pre-built limiter. If nil, one is
	// created from RateLimitConfig (or defaults).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is the allowlist for browser scoreboard UIs.
	CORSOrigins []string

	// DisableLogging drops the request logger, useful in benchmarks.
	DisableLogging bool
}

// NewRouter constructs the router with all middleware and routes. It is
// pure: no goroutines, no listeners — safe for httptest.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{coordinator: cfg.Coordinator}
	if cfg.Hub != nil {
		h.lobby = cfg.Hub
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", h.handleListGames)
		r.Post("/games", h.handleCreateGame)
		r.Get("/games/{id}", h.handleGetGame)
	})

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWebSocket)
	}

	return r
}
