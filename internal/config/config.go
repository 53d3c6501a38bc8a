// Package config loads feedlog settings from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultChunkSize is the number of messages per parallel verification batch.
const DefaultChunkSize = 2000

var (
	// ErrInvalidLogLevel is returned when the log level is not recognised
	ErrInvalidLogLevel = errors.New("log level must be one of debug, info, warn, error")
	// ErrInvalidChunkSize is returned when the verify chunk size is not positive
	ErrInvalidChunkSize = errors.New("verify chunk size must be positive")
	// ErrInvalidWorkers is returned when the verify worker count is not positive
	ErrInvalidWorkers = errors.New("verify workers must be positive")
	// ErrInvalidShards is returned when the validate shard count is not positive
	ErrInvalidShards = errors.New("validate shards must be positive")
)

// VerifyConfig tunes signature verification.
type VerifyConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Workers   int `yaml:"workers"`
}

// ValidateConfig tunes the hash-chain audit.
type ValidateConfig struct {
	// Shards is the number of goroutines authors are spread across. One means a single scan.
	Shards int `yaml:"shards"`
}

// Config represents feedlog configuration
type Config struct {
	LogLevel string `yaml:"log_level"`

	Verify   VerifyConfig   `yaml:"verify"`
	Audit    ValidateConfig `yaml:"validate"`

	// Progress enables the streaming progress line on stderr
	Progress bool `yaml:"progress"`

	// SyncWrites fsyncs destination logs after every append
	SyncWrites bool `yaml:"sync_writes"`

	// MetricsFile, when set, receives a Prometheus textfile dump after each command
	MetricsFile string `yaml:"metrics_file"`
}

// NewConfig creates a configuration with safe defaults
func NewConfig() *Config {
	c := &Config{Progress: true}
	c.SetDefaults()
	return c
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SetDefaults fills unset fields with sensible values
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Verify.ChunkSize == 0 {
		c.Verify.ChunkSize = DefaultChunkSize
	}
	if c.Verify.Workers == 0 {
		c.Verify.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Audit.Shards == 0 {
		c.Audit.Shards = 1
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Verify.ChunkSize < 1 {
		return ErrInvalidChunkSize
	}
	if c.Verify.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.Audit.Shards < 1 {
		return ErrInvalidShards
	}
	return nil
}

// WithLogLevel sets the log level
func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

// WithChunkSize sets the number of messages per verification batch
func (c *Config) WithChunkSize(n int) *Config {
	c.Verify.ChunkSize = n
	return c
}

// WithWorkers sets the number of concurrent verification batches
func (c *Config) WithWorkers(n int) *Config {
	c.Verify.Workers = n
	return c
}

// WithShards sets the number of validation shards
func (c *Config) WithShards(n int) *Config {
	c.Audit.Shards = n
	return c
}

// WithMetricsFile sets the Prometheus textfile destination
func (c *Config) WithMetricsFile(path string) *Config {
	c.MetricsFile = path
	return c
}
