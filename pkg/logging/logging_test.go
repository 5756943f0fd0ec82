package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skinmap/pkg/logging"
)

func TestConfig(t *testing.T) {
	originalLogger := *logging.Default()
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		logging.SetDefault(originalLogger)
		zerolog.SetGlobalLevel(originalLevel)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
		assert.False(t, cfg.AddCaller)
	})

	t.Run("file output with default fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "debug",
			Format: "json",
			Output: path,
			Fields: map[string]any{"engine": "v1"},
		})
		logger.Info().Msg("record processed")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "record processed")
		assert.Contains(t, string(content), `"engine":"v1"`)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logging.NewLoggerFromConfig(&logging.Config{Level: "loud", Output: "discard"})
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})

	t.Run("warning alias", func(t *testing.T) {
		logging.NewLoggerFromConfig(&logging.Config{Level: "warning", Output: "discard"})
		assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	})
}

func TestContextFields(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithRun(ctx, "01J9Z")
	ctx = logging.WithRecord(ctx, "Ingredients_Collected", 7)
	ctx = logging.WithProduct(ctx, "p-1")
	ctx = logging.WithField(ctx, "dry_run", true)

	logging.FromContext(ctx).Info().Msg("merged")

	testLogger.AssertContains(t, `"run_id":"01J9Z"`)
	testLogger.AssertContains(t, `"source":"Ingredients_Collected"`)
	testLogger.AssertContains(t, `"row":7`)
	testLogger.AssertContains(t, `"product_id":"p-1"`)
	testLogger.AssertContains(t, `"dry_run":true`)
	assert.Equal(t, "01J9Z", logging.RunID(ctx))
	assert.Len(t, testLogger.Lines(), 1)
}

func TestFromContextDefaults(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	assert.Equal(t, logging.Default(), logging.FromContext(nil))
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	assert.Empty(t, logging.RunID(context.Background()))
}

func TestCaptureLoggingForTest(t *testing.T) {
	captured := logging.CaptureLoggingForTest(t)
	logging.Warn().Str("flag", "alcohol_high").Msg("hint dropped")

	captured.AssertContains(t, `"flag":"alcohol_high"`)
	entries := captured.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "hint dropped", entries[0]["message"])
	assert.Equal(t, "warn", entries[0]["level"])
}
