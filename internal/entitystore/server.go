package entitystore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/pkg/logger"
)

// ServerConfig holds entity store server configuration
type ServerConfig struct {
	Log  zerolog.Logger
	DB   *database.DB
	Port int
}

// Server is the HTTP front of the reference entity store
type Server struct {
	router *chi.Mux
	server *http.Server
	db     *database.DB
	feed   *Feed
	port   int
	log    zerolog.Logger
}

// NewServer wires the repository, change feed and routes
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router: chi.NewRouter(),
		db:     cfg.DB,
		feed:   NewFeed(cfg.Log),
		port:   cfg.Port,
		log:    cfg.Log.With().Str("component", "entitystore_server").Logger(),
	}

	handler := NewHandler(NewRepository(cfg.DB.Conn(), cfg.Log), s.feed, cfg.Log)

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.HTTPMiddleware(s.log))

	s.router.Get("/health", s.handleHealth)
	// The feed is long-lived and stays outside the request timeout
	s.router.Get("/changes", s.feed.ServeHTTP)
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		handler.RegisterRoutes(r)
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // change feed connections stay open
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Feed returns the change feed
func (s *Server) Feed() *Feed {
	return s.feed
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.QuickCheck(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("Database health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting entity store")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down entity store")
	return s.server.Shutdown(ctx)
}
