// Package config provides configuration loading and management for the service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUpstreamBaseURL is the upstream API used when none is configured.
	DefaultUpstreamBaseURL = "https://swapi.info/api/"

	// DefaultPageSize is the page size used by list endpoints when the
	// configuration does not override it.
	DefaultPageSize = 20

	// passwordEnvVar is the fallback environment variable for the database
	// password when no password file is configured.
	passwordEnvVar = "HOLOCRON_DATABASE_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// ServiceName is the name reported by the root metadata endpoint.
	ServiceName string `yaml:"serviceName,omitempty"`

	Server    ServerConfig     `yaml:"server,omitempty"`
	Database  *DatabaseConfig  `yaml:"database"`
	Upstream  UpstreamConfig   `yaml:"upstream,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rateLimit,omitempty"`

	// DefaultPageSize is the page size applied when list requests omit a
	// limit. The hard cap on limits is fixed in the API layer.
	DefaultPageSize int `yaml:"defaultPageSize,omitempty"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080"
	Address string `yaml:"address,omitempty"`
}

// UpstreamConfig defines the upstream API source settings
type UpstreamConfig struct {
	// BaseURL is the base API URL. Resource paths (people/, films/,
	// starships/) are appended to it.
	BaseURL string `yaml:"baseURL,omitempty"`

	// InsecureSkipTLSVerify disables TLS certificate verification for
	// upstream requests. Development use only.
	InsecureSkipTLSVerify bool `yaml:"insecureSkipTLSVerify,omitempty"`
}

// RateLimitConfig defines the Redis-backed rate limiter settings. When the
// section is absent, rate limiting is disabled.
type RateLimitConfig struct {
	// RedisURL is the Redis connection URL (redis://...)
	RedisURL string `yaml:"redisURL"`

	// MaxRequests is the number of requests allowed per client IP per window.
	MaxRequests int `yaml:"maxRequests,omitempty"`

	// WindowSeconds is the duration of the fixed rate-limit window.
	WindowSeconds int `yaml:"windowSeconds,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments. The file
	// should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MinIdleConns is the minimum number of idle connections in the pool
	MinIdleConns int32 `yaml:"minIdleConns,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the HOLOCRON_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(passwordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or the %s environment variable",
		passwordEnvVar,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper
// password handling. The password is URL-escaped to handle special characters.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// Redacted returns a loggable description of the database target with the
// password omitted.
func (d *DatabaseConfig) Redacted() string {
	return fmt.Sprintf("%s@%s:%d/%s", d.User, d.Host, d.Port, d.Database)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetServiceName returns the service name, using a default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return "Holocron API"
	}
	return c.ServiceName
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if c.DefaultPageSize == 0 {
		c.DefaultPageSize = DefaultPageSize
	}
	if c.RateLimit != nil {
		if c.RateLimit.MaxRequests == 0 {
			c.RateLimit.MaxRequests = 1000
		}
		if c.RateLimit.WindowSeconds == 0 {
			c.RateLimit.WindowSeconds = 3600
		}
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	if _, err := url.Parse(c.Upstream.BaseURL); err != nil {
		return fmt.Errorf("upstream.baseURL is not a valid URL: %w", err)
	}

	if c.DefaultPageSize < 0 {
		return fmt.Errorf("defaultPageSize must not be negative")
	}

	if c.RateLimit != nil {
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("rateLimit.redisURL is required when rate limiting is enabled")
		}
		if c.RateLimit.MaxRequests < 0 || c.RateLimit.WindowSeconds < 0 {
			return fmt.Errorf("rateLimit values must not be negative")
		}
	}

	return nil
}
