package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashplan/internal/config"
	"cashplan/internal/log"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := SetupLogger(log.ComponentCLI, "error", "text")

	t.Run("memory backend is seeded", func(t *testing.T) {
		store, closeFn, err := OpenStore(ctx, logger, &config.Config{DataBackend: "memory"})
		require.NoError(t, err)
		require.NotNil(t, closeFn)
		defer closeFn()

		bills, err := store.ListBills(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, bills)
	})

	t.Run("sqlite backend starts empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "cashplan.db")
		store, closeFn, err := OpenStore(ctx, logger, &config.Config{DataBackend: "sqlite", SQLiteDBPath: path})
		require.NoError(t, err)
		defer closeFn()

		bills, err := store.ListBills(ctx)
		require.NoError(t, err)
		assert.Empty(t, bills)
	})
}

func TestSetupLoggerUnknownLevel(t *testing.T) {
	logger := SetupLogger(log.ComponentApp, "chatty", "json")
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
