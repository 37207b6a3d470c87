package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/kanban/internal/api/v1"
	"github.com/gosuda/kanban/internal/api/ws"
	"github.com/gosuda/kanban/internal/config"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/server/middleware"
)

// Server is an HTTP server with its routes and middleware wired.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates the board server: the board API on /api/v1, the board event
// websocket on /ws/board, a health check and, when webAssets is non-nil,
// the embedded board UI on every unmatched route.
//
// ctx bounds the background cleanup of the rate limiter.
func New(ctx context.Context, cfg *config.Config, store v1.BoardStore, hub *ws.Hub, webAssets fs.FS) *Server {
	router := newRouter(cfg.Server.CORSOrigins)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

		apiConfig := huma.DefaultConfig("Kanban Board API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerBoardRoutes(api, store)
	})

	router.Route("/ws", func(r chi.Router) {
		registerWSRoutes(r, hub)
	})

	registerHealth(router)

	// Must be last so API and websocket routes take priority.
	if webAssets != nil {
		router.NotFound(spaFileServer(webAssets).ServeHTTP)
		log.Info().Msg("embedded board UI enabled")
	}

	return newServer(router, cfg.Server.Addr, cfg)
}

// NewTaskAPI creates the reference task API server backed by repo.
// Routes are mounted at the root so the board's gateway client can use the
// server's base URL directly.
func NewTaskAPI(cfg *config.Config, repo domain.TaskRepository) *Server {
	router := newRouter(cfg.Server.CORSOrigins)

	router.Group(func(r chi.Router) {
		api := humachi.New(r, huma.DefaultConfig("Kanban Task API", "1.0.0"))
		registerTaskRoutes(api, repo)
	})

	registerHealth(router)

	return newServer(router, cfg.TaskAPI.Addr, cfg)
}

func newRouter(origins []string) chi.Router {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}).Handler)

	return router
}

func newServer(router chi.Router, addr string, cfg *config.Config) *Server {
	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

func registerHealth(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
