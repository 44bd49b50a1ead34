// Package config provides unified configuration for the bote server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (BOTE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"log/slog"
	"time"

	"github.com/rhuss/bote/pkg/debug"
)

// Config holds all configuration for the bote server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Response      ResponseConfig      `yaml:"response"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`                // default: 8080
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s
	MaxBodySize       int64         `yaml:"max_body_size"`       // default: 10 MB
}

// ResponseConfig holds defaults applied to every response envelope.
type ResponseConfig struct {
	AllowOrigin  string `yaml:"allow_origin"`  // default: "*"
	Serializer   string `yaml:"serializer"`    // "json" or "cbor", default: "json"
	StreamBuffer int    `yaml:"stream_buffer"` // default: 0
}

// StorageConfig selects the source of the demo user listing.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	DSNFile  string `yaml:"dsn_file"`  // _file variant for dsn
	MaxConns int32  `yaml:"max_conns"` // default: 10
	Query    string `yaml:"query"`     // default: DefaultUsersQuery
}

// DefaultUsersQuery lists the users table in id order.
const DefaultUsersQuery = "SELECT id, username, password FROM users ORDER BY id"

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "trace", "debug", "info", "warn" or "error", default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories, BOTE_DEBUG overrides
}

// SlogLevel returns the configured level. Unknown values fall back to info;
// Validate reports them.
func (l LoggingConfig) SlogLevel() slog.Level {
	return debug.ParseLevel(l.Level)
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			MaxBodySize:       10 << 20,
		},
		Response: ResponseConfig{
			AllowOrigin: "*",
			Serializer:  "json",
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 10,
				Query:    DefaultUsersQuery,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
