// ABOUTME: Configuration loading and parsing for recentviews
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

// Config represents the complete recentviews configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Session  SessionConfig  `yaml:"session" toml:"session"`
	Features FeaturesConfig `yaml:"features" toml:"features"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Catalog  CatalogConfig  `yaml:"catalog" toml:"catalog"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Driver is "sqlite" (modernc, pure Go) or "sqlite3" (mattn, cgo)
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// SessionConfig controls where per-session histories live
type SessionConfig struct {
	Backend      string        `yaml:"backend" toml:"backend"` // "memory" or "sqlite"
	Prefix       string        `yaml:"prefix" toml:"prefix"`
	CookieName   string        `yaml:"cookie_name" toml:"cookie_name"`
	CookieSecure bool          `yaml:"cookie_secure" toml:"cookie_secure"`
	MaxSessions  int           `yaml:"max_sessions" toml:"max_sessions"`
	TTL          time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	TTLRaw string `yaml:"ttl" toml:"ttl"`
}

// FeaturesConfig holds runtime feature switches
type FeaturesConfig struct {
	PersistRecentViews bool `yaml:"persist_recent_views" toml:"persist_recent_views"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// JWTSecret signs viewer tokens. Empty keeps every request anonymous.
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// CatalogConfig holds per entity type history limits
type CatalogConfig struct {
	Limits map[string]int `yaml:"limits" toml:"limits"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Session backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// minSecretLength mirrors auth.MinSecretLength without importing auth.
const minSecretLength = 32

// Default returns the configuration used for any field a file leaves out.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: "localhost:8080"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "recentviews.db"},
		Session: SessionConfig{
			Backend:     BackendMemory,
			Prefix:      "recently_viewed",
			CookieName:  "recentviews_session",
			MaxSessions: 10000,
			TTL:         24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be sqlite or sqlite3, got %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Session.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("session.backend must be memory or sqlite, got %q", c.Session.Backend)
	}
	if c.Session.Prefix == "" {
		return fmt.Errorf("session.prefix is required")
	}
	if strings.Contains(c.Session.Prefix, ".") {
		return fmt.Errorf("session.prefix must not contain '.'")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session.max_sessions must not be negative")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minSecretLength)
	}

	for kind, limit := range c.Catalog.Limits {
		if limit < 0 {
			return fmt.Errorf("catalog.limits.%s must not be negative", kind)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.TTLRaw != "" {
		cfg.Session.TTL, err = time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session ttl %q: %w", cfg.Session.TTLRaw, err)
		}
	}

	return nil
}
