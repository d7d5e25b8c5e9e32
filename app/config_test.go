package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/luminara/app"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("toml", func(t *testing.T) {
		path := writeFile(t, "app.toml", `
workers = 6
frame_interval = "20ms"

[logging]
level = "debug"
`)
		cfg, err := app.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Workers)
		assert.Equal(t, 20*time.Millisecond, cfg.FrameInterval)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format, "unset keys keep their defaults")
		assert.Equal(t, app.DefaultConfig().ParallelChunkSize, cfg.ParallelChunkSize)
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, "app.yml", `
workers: 2
parallel_chunk_size: 64
logging:
  format: json
`)
		cfg, err := app.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, 64, cfg.ParallelChunkSize)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Equal(t, app.DefaultConfig(), *cfg)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "app.ini", "workers=1")
		_, err := app.LoadConfig(path)
		assert.ErrorIs(t, err, app.ErrUnsupportedConfig)
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeFile(t, "app.toml", "workers = [")
		_, err := app.LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		logger, err := app.NewLogger(app.LoggingConfig{Level: "warn", Format: format})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(-1))
		assert.True(t, logger.Core().Enabled(1))
	}
}
