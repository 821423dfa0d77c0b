package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cashplan/internal/cache"
	"cashplan/internal/cli"
	apphttp "cashplan/internal/http"
	"cashplan/internal/log"
	"cashplan/internal/planner"
	"cashplan/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentHTTP, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	store, closeStore, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closeStore()

	efCache := cache.NewLRU[planner.EmergencyFund](32, cfg.EFCacheTTL)
	plannerSvc := services.NewPlannerService(store, cfg.Planner(), efCache)
	billSvc := services.NewBillService(store, cfg.Planner(), plannerSvc)

	srv := apphttp.NewServer(":"+cfg.Port, plannerSvc, billSvc, logger)
	srv.MaxHeaderBytes = 1 << 16

	janitor := cache.NewJanitor(efCache)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})
	go janitor.Run(ctx, 10*time.Minute)

	logger.Info("Starting cashplan server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"due_soon_days", cfg.DueSoonDays)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		closeStore()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
