package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig_NewConfig tests creating new configuration with defaults
func TestConfig_NewConfig(t *testing.T) {
	config := NewConfig()

	if config.LogLevel != "info" {
		t.Errorf("Expected LogLevel 'info', got '%s'", config.LogLevel)
	}
	if config.Verify.ChunkSize != DefaultChunkSize {
		t.Errorf("Expected ChunkSize %d, got %d", DefaultChunkSize, config.Verify.ChunkSize)
	}
	if config.Verify.Workers < 1 {
		t.Errorf("Expected positive Workers, got %d", config.Verify.Workers)
	}
	if config.Audit.Shards != 1 {
		t.Errorf("Expected Shards 1, got %d", config.Audit.Shards)
	}
	if !config.Progress {
		t.Error("Expected Progress to be enabled by default")
	}
	assert.NoError(t, config.Validate())
}

// TestConfig_Validate tests configuration validation
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		errorType error
	}{
		{name: "valid config", config: NewConfig()},
		{name: "bad log level", config: NewConfig().WithLogLevel("loud"), errorType: ErrInvalidLogLevel},
		{name: "negative chunk size", config: NewConfig().WithChunkSize(-1), errorType: ErrInvalidChunkSize},
		{name: "zero workers", config: NewConfig().WithWorkers(0), errorType: ErrInvalidWorkers},
		{name: "zero shards", config: NewConfig().WithShards(0), errorType: ErrInvalidShards},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errorType == nil {
				if err != nil {
					t.Errorf("Expected no error for %s, got %v", tt.name, err)
				}
				return
			}
			if !errors.Is(err, tt.errorType) {
				t.Errorf("Expected error %v, got %v", tt.errorType, err)
			}
		})
	}
}

// TestConfig_WithMethods tests the fluent configuration methods
func TestConfig_WithMethods(t *testing.T) {
	config := NewConfig().
		WithLogLevel("debug").
		WithChunkSize(10).
		WithWorkers(3).
		WithShards(4).
		WithMetricsFile("/tmp/feedlog.prom")

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 10, config.Verify.ChunkSize)
	assert.Equal(t, 3, config.Verify.Workers)
	assert.Equal(t, 4, config.Audit.Shards)
	assert.Equal(t, "/tmp/feedlog.prom", config.MetricsFile)
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, NewConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
log_level: warn
progress: false
sync_writes: true
verify:
  chunk_size: 500
validate:
  shards: 8
metrics_file: out.prom
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.LogLevel)
		assert.False(t, cfg.Progress)
		assert.True(t, cfg.SyncWrites)
		assert.Equal(t, 500, cfg.Verify.ChunkSize)
		assert.Positive(t, cfg.Verify.Workers, "unset keys keep their default")
		assert.Equal(t, 8, cfg.Audit.Shards)
		assert.Equal(t, "out.prom", cfg.MetricsFile)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, ""))
		require.NoError(t, err)
		assert.Equal(t, NewConfig(), cfg)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeConfig(t, "chunk_size: 5\n"))
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log_level: chatty\n"))
		assert.ErrorIs(t, err, ErrInvalidLogLevel)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedlog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
