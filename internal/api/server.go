package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/AtharvRaotole/reel-picks/internal/api/handlers"
	"github.com/AtharvRaotole/reel-picks/internal/api/middleware"
	"github.com/AtharvRaotole/reel-picks/internal/config"
	"github.com/AtharvRaotole/reel-picks/internal/favorites"
	"github.com/AtharvRaotole/reel-picks/internal/recent"
	"github.com/AtharvRaotole/reel-picks/internal/reminders"
	"github.com/AtharvRaotole/reel-picks/internal/search"
	"github.com/AtharvRaotole/reel-picks/internal/settings"
	"github.com/AtharvRaotole/reel-picks/internal/websocket"
)

// Deps are the components served over HTTP.
type Deps struct {
	Catalog   handlers.MovieCatalog
	Favorites *favorites.Store
	Recent    *recent.Store
	Reminders *reminders.Store
	Flags     *settings.Flags
	Hub       *websocket.Hub
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	deps   Deps
	logger *logrus.Logger
}

// NewServer creates a new HTTP server. ctx bounds background work owned by
// the server such as rate limiter cleanup.
func NewServer(ctx context.Context, cfg *config.Config, deps Deps, logger *logrus.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(s.routes(ctx, cfg), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// routes builds the route table
func (s *Server) routes(ctx context.Context, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health and status
	mux.Handle("GET /health", handlers.NewHealthHandler(s.logger))
	mux.Handle("GET /status", handlers.NewStatusHandler(s.deps.Favorites, s.deps.Recent, s.deps.Reminders, s.deps.Hub, s.logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Catalog proxy
	catalog := handlers.NewCatalogHandler(s.deps.Catalog, s.logger)
	mux.HandleFunc("GET /api/search", catalog.Search)
	mux.HandleFunc("GET /api/movies/{id}", catalog.Details)

	// Favorites
	fav := handlers.NewFavoritesHandler(s.deps.Favorites, s.logger)
	mux.HandleFunc("GET /api/favorites", fav.List)
	mux.HandleFunc("POST /api/favorites", fav.Add)
	mux.HandleFunc("DELETE /api/favorites", fav.Clear)
	mux.HandleFunc("GET /api/favorites/stats", fav.Stats)
	mux.HandleFunc("GET /api/favorites/export", fav.Export)
	mux.HandleFunc("POST /api/favorites/import", fav.Import)
	mux.HandleFunc("GET /api/favorites/{id}", fav.Get)
	mux.HandleFunc("PATCH /api/favorites/{id}", fav.Update)
	mux.HandleFunc("DELETE /api/favorites/{id}", fav.Remove)

	// Recently viewed
	rec := handlers.NewRecentHandler(s.deps.Recent, s.logger)
	mux.HandleFunc("GET /api/recent", rec.List)
	mux.HandleFunc("POST /api/recent", rec.Add)
	mux.HandleFunc("DELETE /api/recent", rec.Clear)
	mux.HandleFunc("DELETE /api/recent/{id}", rec.Remove)

	// Reminders
	rem := handlers.NewRemindersHandler(s.deps.Reminders, s.logger)
	mux.HandleFunc("GET /api/reminders", rem.List)
	mux.HandleFunc("POST /api/reminders", rem.Add)
	mux.HandleFunc("GET /api/reminders/upcoming", rem.Upcoming)
	mux.HandleFunc("GET /api/reminders/options", rem.Options)
	mux.HandleFunc("GET /api/reminders/{id}", rem.Get)
	mux.HandleFunc("DELETE /api/reminders/{id}", rem.Remove)

	// Settings
	set := handlers.NewSettingsHandler(s.deps.Flags, s.logger)
	mux.HandleFunc("GET /api/settings/{flag}", set.Get)
	mux.HandleFunc("PUT /api/settings/{flag}", set.Put)

	// Live updates
	mux.Handle("GET /ws", s.deps.Hub)
	mux.Handle("GET /ws/search", websocket.NewSearchHandler(s.deps.Catalog, search.Options{
		Debounce:   cfg.SearchDebounce,
		MinLength:  cfg.SearchMinLength,
		AutoSearch: true,
	}, s.logger))

	limiter := middleware.NewIPRateLimiter(ctx, cfg.RateLimitPerMinute)
	root := http.NewServeMux()
	root.Handle("/api/", middleware.RateLimit(limiter, mux))
	root.Handle("/", mux)
	return root
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
