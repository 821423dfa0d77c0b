// Package cli holds the start-up steps shared by cmd/cashplan-server,
// cmd/reminder-worker and the cashplan command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashplan/internal/config"
	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/memory"
	"cashplan/internal/services"
	"cashplan/internal/storage"
)

// Store is every read and write the binaries perform. Both *storage.Store
// and *memory.Store satisfy it.
type Store interface {
	services.PlannerStore
	services.BillStore
}

// LoadEnvFile loads .env for local development. A missing file is ignored.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger for component at the given level and
// makes it the slog default. An unknown level falls back to info.
func SetupLogger(component, level, format string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	cfg.Format = format
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and exits
// the process when it is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured backend. The memory backend is seeded with
// the demo household around today. The returned close function is never nil.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (Store, func() error, error) {
	switch cfg.DataBackend {
	case "memory":
		store, err := memory.Demo(ctx, core.DateOf(time.Now().UTC()))
		if err != nil {
			return nil, nil, fmt.Errorf("seed demo store: %w", err)
		}
		logger.Info("Initialized memory backend with demo data", "backend", cfg.DataBackend)
		return store, func() error { return nil }, nil
	default:
		store, err := storage.Open(ctx, cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLiteDBPath, err)
		}
		logger.Info("Initialized SQLite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
		return store, store.Close, nil
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM after
// cleanup has run, bounded by timeout. done is closed once shutdown finishes.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			return
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and shutdown has
// finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
