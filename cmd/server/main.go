/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the contractor marketplace API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load config (env, app.env)
  2. Initialize the store (SQLite or PostgreSQL)
  3. Optionally load the demo dataset
  4. Create the marketplace service, metrics and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  --port       HTTP server port (default: 3001)
  --db         SQLite path or PostgreSQL DSN (default: marketplace.db)
               Use ":memory:" for in-memory database
  --db-driver  sqlite or postgres (default: sqlite)
  --seed       Load the demo dataset before serving

ENVIRONMENT:
  APP_ENV, HTTP_HOST, HTTP_PORT, CORS_ALLOWED_ORIGINS, DB_DRIVER, DB_DSN,
  DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME, JWT_SECRET,
  DEPOSIT_LIMIT_RATIO, SEED_ON_START. Flags win over env.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with a seeded in-memory database
  ./server --db=":memory:" --seed

  # Run against PostgreSQL
  DB_DRIVER=postgres DB_DSN="postgres://localhost/marketplace" ./server

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
  - store/sqlite/sqlite.go, store/postgres/postgres.go: Database backends
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/warp/contractor-payments/api"
	"github.com/warp/contractor-payments/auth"
	"github.com/warp/contractor-payments/config"
	"github.com/warp/contractor-payments/logger"
	"github.com/warp/contractor-payments/marketplace"
	"github.com/warp/contractor-payments/metrics"
	"github.com/warp/contractor-payments/seed"
	"github.com/warp/contractor-payments/store/postgres"
	"github.com/warp/contractor-payments/store/sqlite"
	"github.com/warp/contractor-payments/store/sqlstore"
)

func main() {
	// Flags
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	// Initialize store
	store, err := openStore(context.Background(), cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("failed to initialize database")
	}
	defer store.Close()

	if cfg.SeedOnStart {
		if err := seed.LoadDefault(context.Background(), store); err != nil {
			log.Fatal().Err(err).Msg("failed to load demo dataset")
		}
		log.Info().Msg("demo dataset loaded")
	}

	// Initialize service and handler
	m := metrics.New()
	svc := marketplace.NewService(store,
		marketplace.WithLogger(log.With().Str("component", "marketplace").Logger()),
		marketplace.WithDepositLimitRatio(cfg.Ledger.DepositLimitRatio),
		marketplace.WithObserver(m),
	)

	var tokens *auth.Parser
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.NewParser(cfg.Auth.JWTSecret)
	}
	handler := api.NewHandler(svc, tokens)

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		Log:            log,
		AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Metrics:        m,
	})

	// Create server
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("driver", cfg.DB.Driver).
			Bool("jwt", tokens.Enabled()).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func openStore(ctx context.Context, db config.DBConfig) (*sqlstore.Store, error) {
	switch db.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, db.DSN, postgres.Options{
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
		})
	default:
		return sqlite.New(db.DSN)
	}
}
