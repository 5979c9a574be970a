/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Opsiron server: factory stock, production
  engine and construction cash-flow ledger behind one HTTP API.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and configuration
  2. Build the logger
  3. Open the store (SQLite, or in-memory)
  4. Create services, the background monitor and the API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional YAML config file
  -port    Overrides server.port
  -db      Overrides database.path (":memory:" for an in-memory SQLite)

ENVIRONMENT:
  OPSIRON_SERVER_PORT, OPSIRON_DATABASE_DRIVER, OPSIRON_DATABASE_PATH,
  OPSIRON_LOG_LEVEL, OPSIRON_LOG_FORMAT, OPSIRON_LEDGER_UPCOMING_WINDOW_DAYS,
  OPSIRON_METRICS_ENABLED, OPSIRON_MONITOR_ENABLED, OPSIRON_MONITOR_INTERVAL.
  A .env file in the working directory is loaded first.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the monitor
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings and defaults
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Dogaatademir/Opsiron-sub001/api"
	"github.com/Dogaatademir/Opsiron-sub001/backup"
	"github.com/Dogaatademir/Opsiron-sub001/config"
	"github.com/Dogaatademir/Opsiron-sub001/generic"
	"github.com/Dogaatademir/Opsiron-sub001/inventory"
	"github.com/Dogaatademir/Opsiron-sub001/ledger"
	"github.com/Dogaatademir/Opsiron-sub001/store/memory"
	"github.com/Dogaatademir/Opsiron-sub001/store/sqlite"
)

// appStore is what every service needs from a backend.
type appStore interface {
	backup.Store
	io.Closer
}

type memoryStore struct{ *memory.Store }

func (memoryStore) Close() error { return nil }

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logg, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize store
	store, err := openStore(cfg.Database)
	if err != nil {
		logg.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Initialize services
	clock := generic.SystemClock{}
	ids := generic.UUIDGenerator{}
	inv := inventory.NewService(store, clock, ids, logg)
	led := ledger.NewService(store, clock, ids, logg, cfg.Ledger.UpcomingWindowDays)
	bk := backup.NewService(store, clock, ids, logg)

	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		metrics = api.NewMetrics()
	}

	monitor := api.NewMonitor(inv, led, metrics, logg)
	monitor.Enabled = cfg.Monitor.Enabled
	monitor.CheckInterval = cfg.Monitor.Interval
	monitor.Start()
	defer monitor.Stop()

	handler := api.NewHandler(inv, led, bk, metrics, logg)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.Server.AllowedOrigins})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logg.WithFields(logrus.Fields{
			"port":   cfg.Server.Port,
			"driver": cfg.Database.Driver,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logg.WithError(err).Error("server forced to shutdown")
	}

	logg.Info("server stopped")
}

func openStore(c config.DatabaseConfig) (appStore, error) {
	switch c.Driver {
	case "memory":
		return memoryStore{memory.New()}, nil
	default:
		return sqlite.New(c.Path)
	}
}
