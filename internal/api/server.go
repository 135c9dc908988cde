package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"zaalplanner/internal/auth"
	"zaalplanner/internal/config"
	"zaalplanner/internal/database"
	"zaalplanner/internal/export"
	"zaalplanner/internal/scheduler"
	"zaalplanner/internal/session"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API over session-authenticated JSON HTTP.
type HTTPServer struct {
	cfg           *config.Config
	db            *database.DB
	manager       *scheduler.Manager
	authenticator *auth.Authenticator
	sessions      session.Store
	exporter      *export.Exporter
	logger        *zerolog.Logger
	server        *http.Server
}

func NewHTTPServer(
	cfg *config.Config,
	db *database.DB,
	manager *scheduler.Manager,
	authenticator *auth.Authenticator,
	sessions session.Store,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:           cfg,
		db:            db,
		manager:       manager,
		authenticator: authenticator,
		sessions:      sessions,
		exporter:      exporter,
		logger:        logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/login", srv.handleLogin)
	mux.HandleFunc("/api/v1/logout", srv.handleLogout)
	mux.HandleFunc("/api/v1/me", srv.handleMe)
	mux.HandleFunc("/api/v1/accounts", srv.handleAccounts)
	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/week", srv.handleWeek)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/series/", srv.handleSeriesByID)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	limiter := newRateLimiter(cfg.Server.RateLimit)
	handler := srv.loggingMiddleware(limiter.wrap(srv.sessionMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware chain, used directly in tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
