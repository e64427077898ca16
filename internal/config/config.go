// Package config loads server settings from environment variables, applies
// defaults and validates them on startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Validation ValidationConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing the response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds the optional export database. Exports are disabled
// when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// ValidationConfig holds settings for validation runs.
type ValidationConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 50MB)
	MaxFileSize int64 `env:"VALIDATION_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the number of runs allowed in parallel (default: 4)
	MaxConcurrent int `env:"VALIDATION_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"VALIDATION_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single run, upload included (default: 5m)
	Timeout time.Duration `env:"VALIDATION_TIMEOUT" default:"5m"`

	// Workers is the column-stage parallelism per run (default: 1)
	Workers int `env:"VALIDATION_WORKERS" default:"1"`

	// SchemaDir holds extra YAML schema definitions (optional)
	SchemaDir string `env:"SCHEMA_DIR"`
}

// SecurityConfig holds API access settings.
type SecurityConfig struct {
	// APIKeys is a comma-separated list of accepted X-API-Key values.
	// Authentication is off when empty.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
