// Package config provides centralized configuration management for FlowForge.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Extract  ExtractConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Session  SessionConfig
	Typo     TypoConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the extract/load connection settings. Both sources
// are optional; the matching endpoints answer 503 when unset.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MySQLDSN is a go-sql-driver/mysql data source name.
	MySQLDSN string `env:"MYSQL_DSN"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// QueryTimeout bounds a single extract or load (default: 5m)
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" default:"5m"`

	// BatchSize is the number of rows per INSERT batch on MySQL (default: 500)
	BatchSize int `env:"DB_BATCH_SIZE" default:"500"`
}

// UploadConfig holds CSV upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel uploads (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// PreviewRows is the number of rows returned by the table endpoint (default: 100)
	PreviewRows int `env:"UPLOAD_PREVIEW_ROWS" default:"100"`
}

// ExtractConfig holds settings for pulling tables from HTTP JSON APIs.
type ExtractConfig struct {
	// APITimeout bounds one API request, including reading the body.
	APITimeout time.Duration `env:"EXTRACT_API_TIMEOUT" default:"30s"`

	// APIMaxBytes caps the response body size.
	APIMaxBytes int64 `env:"EXTRACT_API_MAX_BYTES" default:"104857600"`

	// AllowedHosts restricts API extraction to these hosts. Empty allows any.
	AllowedHosts []string `env:"EXTRACT_API_ALLOWED_HOSTS"`
}

// RateLimitConfig holds per-client token bucket settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerSecond is the sustained rate per client IP (default: 10)
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" default:"10"`

	// Burst is the bucket size per client IP (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`

	// CleanupInterval is how often idle client buckets are evicted (default: 5m)
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" default:"5m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// SessionConfig controls the lifetime of in-memory transform sessions.
type SessionConfig struct {
	// TTL is how long an idle session survives (default: 1h)
	TTL time.Duration `env:"SESSION_TTL" default:"1h"`

	// SweepInterval is how often expired sessions are evicted (default: 1m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`

	// MaxSessions caps concurrent sessions; 0 means unlimited (default: 100)
	MaxSessions int `env:"SESSION_MAX" default:"100"`
}

// TypoConfig tunes the typo suggestion heuristic.
type TypoConfig struct {
	// ColumnCutoff is the minimum similarity for header suggestions (default: 0.6)
	ColumnCutoff float64 `env:"TYPO_COLUMN_CUTOFF" default:"0.6"`

	// DataCutoff is the minimum similarity for value suggestions (default: 0.8)
	DataCutoff float64 `env:"TYPO_DATA_CUTOFF" default:"0.8"`

	// MaxColumnMatches caps candidates per header (default: 3)
	MaxColumnMatches int `env:"TYPO_MAX_COLUMN_MATCHES" default:"3"`

	// MaxDataMatches caps candidates per rare value (default: 2)
	MaxDataMatches int `env:"TYPO_MAX_DATA_MATCHES" default:"2"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}
