// Package config provides the shared configuration types for flowgen.
// It is decoupled from CLI concerns so the compile server and tests can
// build a Config without going through flag parsing.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/flowgen/pkg/format"
)

// Config holds every setting flowgen reads from defaults, the project file,
// FLOWGEN_ environment variables and command-line flags.
type Config struct {
	Target        format.Target `koanf:"target"`
	Output        string        `koanf:"output"` // default output path for compile; empty writes to stdout
	StrictJSON    bool          `koanf:"strict_json"`
	LogLevel      string        `koanf:"log_level"`
	LogFormat     string        `koanf:"log_format"`
	StatePath     string        `koanf:"state_path"`
	RecordHistory bool          `koanf:"record_history"`
	Serve         ServeConfig   `koanf:"serve"`
	Watch         WatchConfig   `koanf:"watch"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// ServeConfig holds settings for the compile server.
type ServeConfig struct {
	Port            int           `koanf:"port"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := format.ParseTarget(string(c.Target)); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (expected debug, info, warn or error)", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (expected text or json)", c.LogFormat)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port %d is out of range", c.Serve.Port)
	}
	if c.Serve.MaxBodyBytes <= 0 {
		return fmt.Errorf("serve.max_body_bytes must be positive")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}
