// Package main is the entry point for the txproxy diagnostics server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txproxy/internal/app"
	"txproxy/internal/config"
	"txproxy/internal/core/tx"
	v1 "txproxy/internal/infrastructure/http/v1"
	"txproxy/internal/infrastructure/http/v1/handlers"
	"txproxy/internal/infrastructure/storage/postgres"
	"txproxy/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting txproxy server")

	cfg, err := loadConfig(getEnv("PROXY_CONFIG", ""))
	if err != nil {
		log.Fatalw("failed to load proxy config", "error", err)
	}
	log.Infow("proxy config loaded", "targets", cfg.TargetNames())

	// --- Transaction manager ---
	var (
		manager     tx.Manager = tx.NewLocalManager()
		managerName            = "local"
		database    handlers.Pinger
	)
	if dsn := getEnv("DATABASE_URL", ""); dsn != "" {
		poolCfg := postgres.DefaultPoolConfig(dsn)
		if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
			poolCfg.MaxConns = int32(maxConns)
		}
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()

		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = getEnvDuration("DB_STATEMENT_TIMEOUT", txOpts.StatementTimeout)
		txOpts.UseSavepoint = getEnv("DB_USE_SAVEPOINT", "false") == "true"

		manager = postgres.NewTxManager(pool, txOpts)
		managerName = "postgres"
		database = pool
	}
	log.Infow("transaction manager ready", "manager", managerName)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Runner:      app.NewRunner(cfg, manager),
		Database:    database,
		ManagerName: managerName,
		Logger:      log,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped")
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
