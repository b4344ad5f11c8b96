package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Server combines the REST router with the WebSocket hub behind one
// listener. Construction has no side effects; nothing listens until
// Start is called, which keeps httptest-based tests simple.
type Server struct {
	coordinator *Coordinator
	hub         *Hub
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// ServerOptions tunes the public server surface.
type ServerOptions struct {
	CORSOrigins []string
	MaxGames    int
}

// NewServer wires coordinator, hub, and router together.
func NewServer(coordinator *Coordinator, opts ServerOptions) *Server {
	if opts.MaxGames > 0 {
		coordinator.SetMaxGames(opts.MaxGames)
	}

	s := &Server{
		coordinator: coordinator,
		hub:         NewHub(coordinator, NewOriginChecker(opts.CORSOrigins)),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}
	s.router = NewRouter(RouterConfig{
		Coordinator: coordinator,
		Hub:         s.hub,
		RateLimiter: s.rateLimiter,
		CORSOrigins: opts.CORSOrigins,
	})
	return s
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub, mostly for tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins serving and blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	log.Info().Str("addr", addr).Msg("scoreboard server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains the listener and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
