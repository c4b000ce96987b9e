/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the expense engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (environment + optional app.env)
  2. Build the logger
  3. Initialize SQLite store
  4. Create services and API handler
  5. Configure HTTP router
  6. Start the month-close scheduler
  7. Start server with graceful shutdown

ENVIRONMENT:
  APP_ENV         development | production (default: development)
  LOG_LEVEL       debug | info | warn | error (default: info)
  HTTP_HOST       Listen host (default: 0.0.0.0)
  HTTP_PORT       Listen port (default: 8080)
  DB_PATH         SQLite database path (default: expenses.db)
                  Use ":memory:" for in-memory database
  AUTH_SECRET     HMAC secret for bearer tokens (required outside development)
  CORS_ORIGINS    Comma-separated allowed origins
  CLOSE_INTERVAL  Month-close check interval (default: 1h)
  AUTO_CLOSE      Run the month-close scheduler (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/expense-engine/api"
	"github.com/warp/expense-engine/config"
	"github.com/warp/expense-engine/expense"
	"github.com/warp/expense-engine/logger"
	"github.com/warp/expense-engine/pettycash"
	"github.com/warp/expense-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DB.Path).Msg("failed to initialize database")
	}
	defer store.Close()

	// Services
	expenses := expense.NewService(store, store)
	expenses.Log = log.With().Str("component", "expenses").Logger()
	pettyCash := pettycash.NewService(store, store)
	pettyCash.Log = log.With().Str("component", "petty-cash").Logger()

	// Initialize handler
	handler := api.NewHandler(expenses, pettyCash, log)

	auth := api.NewAuthenticator(cfg.Auth.Secret)
	if !auth.Enabled() {
		log.Warn().Msg("AUTH_SECRET not set, trusting X-Actor-ID headers")
	}

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		Auth:        auth,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	// Month-close scheduler
	scheduler := api.NewMonthCloseScheduler(pettyCash, log)
	scheduler.CheckInterval = cfg.PettyCash.CloseInterval
	scheduler.Enabled = cfg.PettyCash.AutoClose
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("env", cfg.Environment).Msg("starting expense engine")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
