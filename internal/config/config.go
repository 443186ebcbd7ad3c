// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV" envDefault:"development"`

	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// BaseURL is the public-facing URL used for links and CORS.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	// APIBaseURL is the village REST API that owns content, auth and files.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8081"`

	// CORSOrigins may read the public settings API from other origins, such
	// as the village's static front site.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	// TrustedProxies are the CIDRs whose forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.1/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"`

	ActivityLog ActivityLogConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Upload      UploadConfig
	Settings    SettingsConfig
}

// ActivityLogConfig is the MariaDB database holding the admin activity
// log, the only table the portal owns. Everything else lives behind the
// village API.
type ActivityLogConfig struct {
	// Enabled turns the activity log on. Without it, activity is dropped
	// and the portal keeps working.
	Enabled bool `env:"ACTIVITY_DB_ENABLED" envDefault:"false"`

	// Host is host:port; 3306 is appended when the port is missing.
	Host     string `env:"ACTIVITY_DB_HOST" envDefault:"localhost:3306"`
	User     string `env:"ACTIVITY_DB_USER" envDefault:"portal"`
	Password string `env:"ACTIVITY_DB_PASSWORD" envDefault:"portal"`
	Name     string `env:"ACTIVITY_DB_NAME" envDefault:"portal_activity"`

	// URL bypasses the individual fields when non-empty.
	URL string `env:"ACTIVITY_DB_URL"`

	// One insert per admin action; the pool stays small.
	MaxOpenConns    int           `env:"ACTIVITY_DB_MAX_OPEN_CONNS" envDefault:"4"`
	MaxIdleConns    int           `env:"ACTIVITY_DB_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"ACTIVITY_DB_CONN_MAX_LIFETIME" envDefault:"5m"`

	// ConnectAttempts is how many pings are tried while MariaDB starts.
	ConnectAttempts int `env:"ACTIVITY_DB_CONNECT_ATTEMPTS" envDefault:"10"`
}

// DSN returns the go-sql-driver/mysql connection string. The driver's
// Config.FormatDSN() handles special characters in passwords.
func (d ActivityLogConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL. Empty disables Redis; the settings
	// cache then lives in process memory.
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
}

// AuthConfig holds session cookie and token settings.
type AuthConfig struct {
	// JWTSecret verifies HS256 signatures when set. When empty, tokens are
	// decoded without verification and the upstream API stays the authority.
	JWTSecret string `env:"JWT_SECRET"`

	// LoginPath is where unauthenticated admin requests are sent.
	LoginPath string `env:"LOGIN_PATH" envDefault:"/admin/login"`

	// TokenCookie holds the bearer token, RoleCookie the legacy role mirror.
	TokenCookie string `env:"AUTH_TOKEN_COOKIE" envDefault:"jwt_token"`
	RoleCookie  string `env:"AUTH_ROLE_COOKIE" envDefault:"user_role"`

	// CookieTTL matches the upstream token lifetime.
	CookieTTL time.Duration `env:"AUTH_COOKIE_TTL" envDefault:"24h"`
}

// UploadConfig holds the upload pipeline limits.
type UploadConfig struct {
	// MaxSizeMB is the compression target size.
	MaxSizeMB float64 `env:"UPLOAD_MAX_SIZE_MB" envDefault:"2"`

	// MaxDimension bounds the longer edge of a compressed image.
	MaxDimension int `env:"UPLOAD_MAX_DIMENSION" envDefault:"1920"`

	// Quality is the initial encoder quality in the 0..1 range.
	Quality float64 `env:"UPLOAD_QUALITY" envDefault:"0.90"`

	// HardLimitMB rejects uncompressed files before any network call.
	HardLimitMB float64 `env:"UPLOAD_HARD_LIMIT_MB" envDefault:"5"`

	// WarnMB raises a size warning on uncompressed files.
	WarnMB float64 `env:"UPLOAD_WARN_MB" envDefault:"2"`

	// Timeout is the per-attempt transport ceiling.
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`

	// JobTTL is how long an idle job stays in the registry.
	JobTTL time.Duration `env:"UPLOAD_JOB_TTL" envDefault:"30m"`

	// BodyLimitMB caps the browser-to-portal request body.
	BodyLimitMB int64 `env:"UPLOAD_BODY_LIMIT_MB" envDefault:"50"`
}

// Bytes converts a megabyte figure to bytes.
func Bytes(mb float64) int64 {
	return int64(mb * 1024 * 1024)
}

// SettingsConfig holds the site settings cache parameters.
type SettingsConfig struct {
	// Version tags cached snapshots; bump it to invalidate every cache.
	Version string `env:"SETTINGS_VERSION" envDefault:"2"`

	// MaxAge is the staleness window.
	MaxAge time.Duration `env:"SETTINGS_MAX_AGE" envDefault:"5m"`
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if a value fails to parse or a production requirement is
// missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if len(cfg.Auth.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	if cfg.Upload.Quality <= 0 || cfg.Upload.Quality > 1 {
		return nil, fmt.Errorf("UPLOAD_QUALITY must be in (0, 1], got %v", cfg.Upload.Quality)
	}
	if cfg.Upload.HardLimitMB <= 0 || cfg.Upload.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("upload size limits must be positive")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" and "prod" in any case.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}
