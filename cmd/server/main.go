package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"zaalplanner/internal/api"
	"zaalplanner/internal/auth"
	"zaalplanner/internal/config"
	"zaalplanner/internal/database"
	"zaalplanner/internal/events"
	"zaalplanner/internal/export"
	"zaalplanner/internal/logging"
	"zaalplanner/internal/metrics"
	"zaalplanner/internal/scheduler"
	"zaalplanner/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auth.SeedAccounts(ctx, db, cfg.Accounts, &logger); err != nil {
		return err
	}

	sessions := initSessionStore(ctx, cfg, &logger)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(cfg.Monitoring.PrometheusPort, &logger)
	}

	manager := scheduler.NewManager(db, eventBus, cfg.Rooms, &logger)
	authenticator := auth.NewAuthenticator(db, &logger)
	exporter := export.NewExporter(db, cfg.Rooms, cfg.Exports.Path, &logger)

	if cfg.Exports.SnapshotSchedule != "" {
		snapshots := export.NewSnapshotWorker(exporter, cfg.Exports.SnapshotSchedule, export.RetryPolicy{}, &logger)
		go snapshots.Start(ctx)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	server := api.NewHTTPServer(cfg, db, manager, authenticator, sessions, exporter, &logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
			return err
		}
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

// initSessionStore prefers Redis with an in-memory fallback; with no Redis
// address configured sessions are memory-only.
func initSessionStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) session.Store {
	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
	memory := session.NewMemoryStore(ttl)

	if cfg.Redis.Address == "" {
		logger.Info().Msg("Redis not configured, using in-memory session store")
		return memory
	}

	client := session.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := session.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable at startup, failover store will retry")
	}

	primary := session.NewRedisStore(client, ttl)
	return session.NewFailoverStore(primary, memory, logger)
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	eventLogger := logger.With().Str("component", "events").Logger()
	handler := func(event *events.Event) error {
		eventLogger.Debug().
			Str("type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("booking event")
		return nil
	}

	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingUpdated,
		events.EventBookingDeleted,
		events.EventSeriesReplaced,
		events.EventSeriesDeleted,
	} {
		bus.Subscribe(eventType, handler)
	}
}

func startMetricsServer(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Int("port", port).Msg("Prometheus metrics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
