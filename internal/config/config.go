// ABOUTME: Configuration loading and parsing for feedbackd
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Session backends.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// Config represents the complete feedbackd configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Admin      AdminConfig      `yaml:"admin" toml:"admin"`
	Session    SessionConfig    `yaml:"session" toml:"session"`
	LoginLimit LoginLimitConfig `yaml:"login_limit" toml:"login_limit"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
	Export     ExportConfig     `yaml:"export" toml:"export"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	HTTPAddr     string        `yaml:"http_addr" toml:"http_addr"`
	ReadTimeout  time.Duration `yaml:"-" toml:"-"`
	WriteTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	ReadTimeoutRaw  string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeoutRaw string `yaml:"write_timeout" toml:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AdminConfig holds the single administrator identity
type AdminConfig struct {
	Username string `yaml:"username" toml:"username"`
	// PasswordHash is a bcrypt hash, see `feedbackd hash-password`
	PasswordHash string `yaml:"password_hash" toml:"password_hash"`
}

// SessionConfig holds admin session configuration
type SessionConfig struct {
	Secret       string        `yaml:"secret" toml:"secret"`
	Backend      string        `yaml:"backend" toml:"backend"`
	SecureCookie bool          `yaml:"secure_cookie" toml:"secure_cookie"`
	Redis        RedisConfig   `yaml:"redis" toml:"redis"`
	IdleTimeout  time.Duration `yaml:"-" toml:"-"`
	MaxLifetime  time.Duration `yaml:"-" toml:"-"`
	ReapInterval time.Duration `yaml:"-" toml:"-"`

	IdleTimeoutRaw  string `yaml:"idle_timeout" toml:"idle_timeout"`
	MaxLifetimeRaw  string `yaml:"max_lifetime" toml:"max_lifetime"`
	ReapIntervalRaw string `yaml:"reap_interval" toml:"reap_interval"`
}

// RedisConfig holds connection settings for the redis session backend
type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

// LoginLimitConfig throttles login attempts per client IP.
// Unset rate and burst default to 5; set disabled to turn throttling off.
type LoginLimitConfig struct {
	Disabled bool `yaml:"disabled" toml:"disabled"`
	// Rate is attempts per minute
	Rate  float64 `yaml:"rate" toml:"rate"`
	Burst int     `yaml:"burst" toml:"burst"`
}

// PerMinute is the rate to hand to the limiter; 0 means unlimited.
func (l LoginLimitConfig) PerMinute() float64 {
	if l.Disabled {
		return 0
	}
	return l.Rate
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// ExportConfig holds the default directory for `feedbackd export`
type ExportConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// Default returns a Config with every optional field populated.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw configuration bytes, then applies defaults and validates.
func Parse(data []byte, isTOML bool) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if isTOML {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DefaultPath returns the config location: FEEDBACKD_CONFIG if set, then
// $XDG_CONFIG_HOME/feedbackd/config.yaml, then ~/.config/feedbackd/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("FEEDBACKD_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "feedbackd", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "feedbackd", "config.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "./feedback.db"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = SessionBackendSQLite
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = 20 * time.Minute
	}
	if c.Session.MaxLifetime == 0 {
		c.Session.MaxLifetime = 12 * time.Hour
	}
	if c.Session.ReapInterval == 0 {
		c.Session.ReapInterval = 5 * time.Minute
	}
	if c.Session.Redis.Prefix == "" {
		c.Session.Redis.Prefix = "feedbackd:"
	}
	if c.LoginLimit.Rate == 0 {
		c.LoginLimit.Rate = 5
	}
	if c.LoginLimit.Burst == 0 {
		c.LoginLimit.Burst = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "dataset"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Admin.Username == "" {
		return fmt.Errorf("admin.username is required")
	}
	if c.Admin.PasswordHash == "" {
		return fmt.Errorf("admin.password_hash is required (generate with: feedbackd hash-password)")
	}
	if !strings.HasPrefix(c.Admin.PasswordHash, "$2") {
		return fmt.Errorf("admin.password_hash must be a bcrypt hash")
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 characters")
	}
	switch c.Session.Backend {
	case SessionBackendSQLite:
	case SessionBackendRedis:
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required when session.backend is redis")
		}
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", SessionBackendSQLite, SessionBackendRedis, c.Session.Backend)
	}
	if c.Session.IdleTimeout < 0 || c.Session.MaxLifetime < 0 || c.Session.ReapInterval < 0 {
		return fmt.Errorf("session durations must not be negative")
	}
	if c.Session.MaxLifetime < c.Session.IdleTimeout {
		return fmt.Errorf("session.max_lifetime (%s) must not be shorter than session.idle_timeout (%s)",
			c.Session.MaxLifetime, c.Session.IdleTimeout)
	}

	if c.LoginLimit.Rate < 0 || c.LoginLimit.Burst < 0 {
		return fmt.Errorf("login_limit values must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_timeout", cfg.Server.ReadTimeoutRaw, &cfg.Server.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeoutRaw, &cfg.Server.WriteTimeout},
		{"session.idle_timeout", cfg.Session.IdleTimeoutRaw, &cfg.Session.IdleTimeout},
		{"session.max_lifetime", cfg.Session.MaxLifetimeRaw, &cfg.Session.MaxLifetime},
		{"session.reap_interval", cfg.Session.ReapIntervalRaw, &cfg.Session.ReapInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}

// Starter returns a commented YAML config for `feedbackd init`.
func Starter(secret, passwordHash string) string {
	return fmt.Sprintf(`# feedbackd configuration

server:
  http_addr: "127.0.0.1:8080"
  read_timeout: "15s"
  write_timeout: "30s"

database:
  path: "./feedback.db"

admin:
  username: "admin"
  # bcrypt hash; regenerate with: feedbackd hash-password
  password_hash: %q

session:
  secret: %q
  backend: "sqlite"
  idle_timeout: "20m"
  max_lifetime: "12h"
  reap_interval: "5m"
  secure_cookie: false
  # redis:
  #   addr: "localhost:6379"
  #   prefix: "feedbackd:"

login_limit:
  # disabled: true turns throttling off
  rate: 5
  burst: 5

logging:
  level: "info"
  format: "text"

metrics:
  enabled: true
  path: "/metrics"

export:
  dir: "dataset"
`, passwordHash, secret)
}
