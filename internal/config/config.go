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
	Database DatabaseConfig
	Source   SourceConfig
	Clean    CleanConfig
	Map      MapConfig
	Refresh  RefreshConfig
	Cache    CacheConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds snapshot store settings. An empty URL runs the
// service without persistence.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// SnapshotRetention is how many saved tables to keep (default: 3)
	SnapshotRetention int `env:"DB_SNAPSHOT_RETENTION" default:"3"`
}

// Enabled reports whether a snapshot store is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// SourceConfig says where the raw surveillance extract comes from.
// Exactly one of Path and URL must be set.
type SourceConfig struct {
	Path string `env:"SOURCE_PATH"`
	URL  string `env:"SOURCE_URL"`

	// Timeout bounds one HTTP download (default: 2m)
	Timeout time.Duration `env:"SOURCE_TIMEOUT" default:"2m"`

	// MaxSize is the largest accepted download in bytes (default: 100MB)
	MaxSize int64 `env:"SOURCE_MAX_SIZE" default:"104857600"`
}

// CleanConfig holds row cleaning settings.
type CleanConfig struct {
	// MinYear drops rows before this year (default: 2010)
	MinYear int `env:"CLEAN_MIN_YEAR" default:"2010"`
}

// MapConfig holds choropleth policy and polygon vocabulary settings.
type MapConfig struct {
	// Window is up_to_year or single_year (default: up_to_year)
	Window string `env:"MAP_WINDOW" default:"up_to_year"`

	// Averaging is unweighted or weighted (default: unweighted)
	Averaging string `env:"MAP_AVERAGING" default:"unweighted"`

	// Metric is the metric colored on the map (default: tb_incidence)
	Metric string `env:"MAP_METRIC" default:"tb_incidence"`

	// PolygonsPath is a GeoJSON FeatureCollection of country polygons.
	// Without it every country is reported unresolved.
	PolygonsPath string `env:"GEO_POLYGONS_PATH"`

	IDProperty   string `env:"GEO_ID_PROPERTY" default:"ADM0_A3"`
	NameProperty string `env:"GEO_NAME_PROPERTY" default:"ADMIN"`

	// AliasesPath is a CSV of extra surveillance_name,polygon_name pairs
	// layered over the built-in aliases.
	AliasesPath string `env:"GEO_ALIASES_PATH"`
}

// RefreshConfig holds data refresh scheduling settings.
type RefreshConfig struct {
	// Interval between scheduled refreshes; 0 refreshes once at startup only (default: 24h)
	Interval time.Duration `env:"REFRESH_INTERVAL" default:"24h"`

	// Timeout bounds one refresh triggered over HTTP (default: 5m)
	Timeout time.Duration `env:"REFRESH_TIMEOUT" default:"5m"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	// Size is the number of cached query results; 0 disables caching (default: 256)
	Size int `env:"CACHE_SIZE" default:"256"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey protects POST /api/refresh with an X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed
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

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
