// Package config provides centralized configuration management for the application.
// Settings come from environment variables with sensible defaults, optionally
// preceded by a config file named by CONFIG_PATH, and are validated on startup
// to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Database drivers accepted by DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Export    ExportConfig    `yaml:"export"`
	Rate      RateLimitConfig `yaml:"rate"`
	Security  SecurityConfig  `yaml:"security"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
	Forms     FormsConfig     `yaml:"forms"`
	Events    EventsConfig    `yaml:"events"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port int    `yaml:"port" env:"SERVER_PORT" env-default:"8080"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, export drain included.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"60s"`
}

// DatabaseConfig selects and tunes the registration store.
type DatabaseConfig struct {
	// Driver is one of postgres, sqlite or memory.
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`

	// URL is the PostgreSQL connection string. DB_URL is accepted as a fallback.
	URL string `yaml:"url" env:"DATABASE_URL,DB_URL"`

	MaxConns        int           `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"20"`
	MinConns        int           `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"4"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" env-default:"30m"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"creative_hub.db"`
}

// ExportConfig holds admin export settings.
type ExportConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent" env:"EXPORT_MAX_CONCURRENT" env-default:"3"`
	MaxWait       time.Duration `yaml:"max_wait" env:"EXPORT_MAX_WAIT" env-default:"10s"`

	// TopN caps the interest and software rankings on the dashboard.
	TopN int `yaml:"top_n" env:"EXPORT_TOP_N" env-default:"8"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RequestsPerMinute int  `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" env-default:"100"`

	// SubmitLimit applies to form step posts and the registration API.
	SubmitLimit int `yaml:"submit_limit" env:"RATE_LIMIT_SUBMIT" env-default:"20"`
}

// SecurityConfig holds proxy and API key settings.
type SecurityConfig struct {
	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honoured.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" env-separator:","`

	// RequireAPIKey protects the JSON admin API with X-API-Key.
	RequireAPIKey bool     `yaml:"require_api_key" env:"REQUIRE_API_KEY" env-default:"false"`
	APIKeys       []string `yaml:"api_keys" env:"API_KEYS" env-separator:","`

	EnableCSP bool `yaml:"enable_csp" env:"ENABLE_CSP" env-default:"true"`
}

// AdminConfig holds dashboard credentials.
type AdminConfig struct {
	Username   string        `yaml:"username" env:"ADMIN_USERNAME" env-default:"admin"`
	Password   string        `yaml:"password" env:"ADMIN_PASSWORD" env-default:"admin123"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"ADMIN_SESSION_TTL" env-default:"12h"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// FormsConfig holds registration form session settings.
type FormsConfig struct {
	SessionTTL    time.Duration `yaml:"session_ttl" env:"FORM_SESSION_TTL" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"FORM_SWEEP_INTERVAL" env-default:"5m"`
}

// EventsConfig holds RabbitMQ settings. An empty URL disables publishing.
type EventsConfig struct {
	RabbitMQURL string `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	Exchange    string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"creative_hub.registrations"`
}

// RetentionConfig controls audit log purging. Zero days keeps entries forever.
type RetentionConfig struct {
	AuditRetentionDays int           `yaml:"audit_retention_days" env:"AUDIT_RETENTION_DAYS" env-default:"90"`
	CheckInterval      time.Duration `yaml:"check_interval" env:"RETENTION_CHECK_INTERVAL" env-default:"1h"`
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
