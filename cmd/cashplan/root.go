package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cashplan/internal/cache"
	"cashplan/internal/cli"
	"cashplan/internal/config"
	"cashplan/internal/log"
	"cashplan/internal/planner"
	"cashplan/internal/services"
)

var (
	flagDemo     bool
	flagDBPath   string
	flagJSON     bool
	flagLogLevel string
)

// app is built once per invocation by the root command's pre-run hook.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   cli.Store
	close   func() error
	planner *services.PlannerService
	bills   *services.BillService
}

var current *app

var rootCmd = &cobra.Command{
	Use:           "cashplan",
	Short:         "Plan recurring bills and allocate incoming cash",
	Long:          "Inspect bill occurrences, allocate an inflow across bills, budgets and the emergency fund, and manage the ledger.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if current != nil {
		_ = current.close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Use an in-memory store seeded with a demo household")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level written to stderr")
}

// loadConfig reads the environment and applies the global flags.
func loadConfig() (*config.Config, *log.Logger, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if flagDemo {
		cfg.DataBackend = "memory"
	}
	if flagDBPath != "" {
		cfg.SQLiteDBPath = flagDBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentCLI
	logCfg.Output = os.Stderr
	logCfg.Format = cfg.LogFormat
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, nil, err
	}
	logCfg.Level = level
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return cfg, logger, nil
}

// openApp opens the configured store and builds the services.
func openApp(ctx context.Context) (*app, error) {
	if current != nil {
		return current, nil
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, closeStore, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	plannerSvc := services.NewPlannerService(store, cfg.Planner(), cache.NewLRU[planner.EmergencyFund](4, cfg.EFCacheTTL))
	current = &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		close:   closeStore,
		planner: plannerSvc,
		bills:   services.NewBillService(store, cfg.Planner(), plannerSvc),
	}
	return current, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
