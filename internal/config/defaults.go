package config

import (
	"time"

	"github.com/leapstack-labs/flowgen/pkg/format"
)

// Default configuration values.
const (
	DefaultTarget          = format.TargetGo
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "text"
	DefaultStateFile       = ".flowgen/history.db"
	DefaultServePort       = 8080
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 5 * time.Second
	DefaultWatchDebounce   = 100 * time.Millisecond
)

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	ApplyDefaults(c)
	c.RecordHistory = true
	return c
}

// ApplyDefaults fills zero-valued fields with defaults. Booleans are left alone.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStateFile
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultServePort
	}
	if c.Serve.MaxBodyBytes == 0 {
		c.Serve.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Serve.ShutdownTimeout == 0 {
		c.Serve.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultWatchDebounce
	}
}

// DefaultMap returns the defaults as a flat key map for koanf's confmap provider.
func DefaultMap() map[string]any {
	return map[string]any{
		"target":                 string(DefaultTarget),
		"output":                 "",
		"strict_json":            false,
		"log_level":              DefaultLogLevel,
		"log_format":             DefaultLogFormat,
		"state_path":             DefaultStateFile,
		"record_history":         true,
		"serve.port":             DefaultServePort,
		"serve.max_body_bytes":   DefaultMaxBodyBytes,
		"serve.shutdown_timeout": DefaultShutdownTimeout.String(),
		"watch.debounce":         DefaultWatchDebounce.String(),
	}
}
