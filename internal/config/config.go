// Package config provides centralized configuration management for the application.
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
	API      APIConfig
	Upload   UploadConfig
	Notify   NotifyConfig
	Session  SessionConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Audit    AuditConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// APIConfig points at the student REST API.
type APIConfig struct {
	// BaseURL is the API root. NEXT_PUBLIC_API_URL is honoured for
	// deployments migrating from the previous front end.
	BaseURL string `env:"API_BASE_URL" envAlt:"NEXT_PUBLIC_API_URL" default:"http://localhost:3000"`

	// Timeout bounds every API request (default: 10s)
	Timeout time.Duration `env:"API_TIMEOUT" default:"10s"`
}

// UploadConfig holds identity document limits.
type UploadConfig struct {
	// MaxFileSize is the maximum document size in bytes (default: 5MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"5242880"`

	// AllowedExtensions lists accepted document extensions without dots
	AllowedExtensions []string `env:"UPLOAD_ALLOWED_EXTENSIONS" default:"pdf,jpg,jpeg,png"`
}

// NotifyConfig holds notification settings.
type NotifyConfig struct {
	// Duration is how long a notification stays visible (default: 5s)
	Duration time.Duration `env:"NOTIFY_DURATION" default:"5s"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// Backend stores sign-ins: memory or redis (default: memory)
	Backend string `env:"SESSION_BACKEND" default:"memory"`

	// TTL bounds how long a sign-in is kept (default: 12h)
	TTL time.Duration `env:"SESSION_TTL" default:"12h"`

	// CookieName is the session cookie (default: matricula_sid)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"matricula_sid"`

	// CookieSecure sets the Secure attribute; enable behind HTTPS
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// IdleTimeout drops per-browser page state after inactivity (default: 2h)
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" default:"2h"`

	// SweepInterval is how often idle state is collected (default: 10m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"10m"`
}

// RedisConfig holds Redis connection settings for the redis session backend.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" default:"0"`
}

// DatabaseConfig holds the optional audit database connection.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps the audit trail in memory.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	// RetentionDays is days to keep audit entries (default: 180)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"180"`

	// CheckInterval is how often to purge old entries (default: 24h)
	CheckInterval time.Duration `env:"AUDIT_CHECK_INTERVAL" default:"24h"`

	// MemoryCapacity caps the in-memory trail when no database is set (default: 10000)
	MemoryCapacity int `env:"AUDIT_MEMORY_CAPACITY" default:"10000"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SubmitLimit is requests per minute for enrollment and login posts (default: 10)
	SubmitLimit int `env:"RATE_LIMIT_SUBMIT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is where metrics are served (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
