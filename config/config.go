// Package config loads habitstore settings from an optional YAML file and
// HABITSTORE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/habit-store/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HABITSTORE_"

// Config is the full runtime configuration.
type Config struct {
	Addr           string   `yaml:"addr"`
	DataDir        string   `yaml:"data_dir"`
	Backend        string   `yaml:"backend"`
	Concurrency    int      `yaml:"concurrency"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Log            Log      `yaml:"log"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Addr:           "0.0.0.0:8080",
		DataDir:        "./data",
		Backend:        "json",
		Concurrency:    4,
		AllowedOrigins: []string{"*"},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load starts from Default, applies the YAML file at path (if path is not
// empty), then environment overrides. Unknown YAML keys are rejected. The
// result is not validated: callers layer their own overrides first and then
// call Validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) applyEnv() error {
	c.Addr = env("ADDR", c.Addr)
	c.DataDir = env("DATA_DIR", c.DataDir)
	c.Backend = env("BACKEND", c.Backend)
	c.Log.Level = env("LOG_LEVEL", c.Log.Level)
	c.Log.Format = env("LOG_FORMAT", c.Log.Format)

	if v := env("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = strings.Split(v, ",")
	}
	if v := env("CONCURRENCY", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err)
		}
		c.Concurrency = n
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if !slices.Contains(store.Backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(store.Backends, ", "))
	}
	if c.Backend != "memory" && c.DataDir == "" {
		return errors.New("data_dir is required for the " + c.Backend + " backend")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("unknown log format %q (want json or console)", c.Log.Format)
	}
	return nil
}
