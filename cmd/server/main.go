/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Build the zap logger
  3. Open the store (SQLite or PostgreSQL)
  4. Connect the report cache when REDIS_ADDR is set
  5. Configure HTTP router and start serving
  6. Shut down gracefully on SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run against PostgreSQL with a redis report cache
  DB_DRIVER=postgres POSTGRESQL_NAME=payroll REDIS_ADDR=localhost:6379 ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
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

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/logger"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/report"
	"github.com/warp/payroll-engine/store/postgres"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment
	port := flag.Int("port", cfg.HTTP.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLite.Path, "SQLite database path")
	flag.Parse()
	cfg.HTTP.Port = *port
	cfg.SQLite.Path = *dbPath

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "payroll-engine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	cache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache.Close()

	calc := payroll.NewPayCalculator()
	calc.Format = cfg.AmountFormat
	reports := report.NewService(store, calc, cache, log)

	handler := api.NewHandler(store, reports, log)
	handler.MaxUploadBytes = cfg.HTTP.MaxUploadBytes

	if cfg.Redis.Enabled() {
		warmer := report.NewWarmer(reports, cfg.Redis.WarmInterval, log)
		warmer.Start()
		defer warmer.Stop()
		handler.Warmer = warmer
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.HTTP.Port),
			zap.String("db_driver", cfg.DBDriver),
			zap.Bool("report_cache", cfg.Redis.Enabled()),
			zap.String("amount_format", string(cfg.AmountFormat)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (payroll.Store, io.Closer, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(db, log)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, store, nil
	default:
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return store, store, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (report.Cache, io.Closer, error) {
	if !cfg.Redis.Enabled() {
		return report.NopCache{}, io.NopCloser(nil), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("report cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	return report.NewRedisCache(client, cfg.Redis.TTL), client, nil
}
