// Package cli provides common CLI initialization utilities shared by
// cmd/veraz, cmd/audit-worker and cmd/veraz-users.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"veraz/internal/config"
	"veraz/internal/log"
	"veraz/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads the environment into a Config and builds the logger.
// validate is run before returning; on failure the process exits.
func LoadConfig(component string, validate ...func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	for _, v := range validate {
		if err := v(cfg); err != nil {
			logger.Error("Configuration validation failed", log.FieldError, err.Error())
			os.Exit(1)
		}
	}
	return cfg, logger
}

// InitSQLite opens the SQLite repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}

// Shutdown runs fn with a fresh context bounded by timeout, for work that
// must happen after the main context is already cancelled.
func Shutdown(logger *log.Logger, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("Shutdown error", log.FieldError, err.Error(), log.FieldOperation, log.OpShutdown)
		return err
	}
	return nil
}
