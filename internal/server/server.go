// Package server is the HTTP and WebSocket API of the bot.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/server/handler"
	"github.com/alanyoungcy/limitedbot/internal/server/middleware"
	"github.com/alanyoungcy/limitedbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit requests per RateWindow per client IP; zero disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers. Candidates and Scans are nil when
// no database is configured; their routes then answer 503.
type Handlers struct {
	Health     *handler.HealthHandler
	Status     *handler.StatusHandler
	Snapshot   *handler.SnapshotHandler
	Search     *handler.SearchHandler
	Candidates *handler.CandidateHandler
	Scans      *handler.ScanHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wraps them in CORS, logging, rate
// limiting and auth, outermost first. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("GET /api/snapshot", handlers.Snapshot.GetSnapshot)
	mux.HandleFunc("POST /api/snapshot/refresh", handlers.Snapshot.Refresh)
	mux.HandleFunc("GET /api/snapshot/items/{assetId}", handlers.Snapshot.GetItem)

	mux.HandleFunc("POST /api/search", handlers.Search.Search)

	if handlers.Candidates != nil {
		mux.HandleFunc("GET /api/candidates", handlers.Candidates.List)
		mux.HandleFunc("GET /api/candidates/{id}", handlers.Candidates.Get)
	} else {
		mux.HandleFunc("GET /api/candidates", unavailable)
		mux.HandleFunc("GET /api/candidates/{id}", unavailable)
	}

	if handlers.Scans != nil {
		mux.HandleFunc("GET /api/scans", handlers.Scans.List)
		mux.HandleFunc("GET /api/scans/summary", handlers.Scans.Summary)
		mux.HandleFunc("GET /api/audit", handlers.Scans.Audit)
	} else {
		mux.HandleFunc("GET /api/scans", unavailable)
		mux.HandleFunc("GET /api/scans/summary", unavailable)
		mux.HandleFunc("GET /api/audit", unavailable)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func unavailable(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"error":"database disabled"}`))
}
