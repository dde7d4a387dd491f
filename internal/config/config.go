// ABOUTME: Configuration loading and parsing for bootgate
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bootgate configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Retention RetentionConfig `yaml:"retention"`
	Receipts  ReceiptsConfig  `yaml:"receipts"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	JWTIssuer    string `yaml:"jwt_issuer"`
	APIKeyHeader string `yaml:"api_key_header"`
}

// BootstrapConfig holds bootstrap resolution defaults
type BootstrapConfig struct {
	DefaultTenantKey         string `yaml:"default_tenant_key"`
	DefaultDeploymentKey     string `yaml:"default_deployment_key"`
	DefaultStartupSLASeconds int    `yaml:"default_startup_sla_seconds"`
}

// RetentionConfig holds startup session retention configuration
type RetentionConfig struct {
	SessionRetention time.Duration `yaml:"-"`
	SweepInterval    time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	SessionRetentionRaw string `yaml:"session_retention"`
	SweepIntervalRaw    string `yaml:"sweep_interval"`
}

// ReceiptsConfig holds external receipt ledger configuration
type ReceiptsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AuthToken string `yaml:"auth_token"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// RateLimitConfig holds public API rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in defaults for optional fields left empty in the file.
func applyDefaults(cfg *Config) {
	if cfg.Auth.APIKeyHeader == "" {
		cfg.Auth.APIKeyHeader = "X-API-Key"
	}
	if cfg.Bootstrap.DefaultTenantKey == "" {
		cfg.Bootstrap.DefaultTenantKey = "default"
	}
	if cfg.Bootstrap.DefaultDeploymentKey == "" {
		cfg.Bootstrap.DefaultDeploymentKey = "default"
	}
	if cfg.Bootstrap.DefaultStartupSLASeconds == 0 {
		cfg.Bootstrap.DefaultStartupSLASeconds = 120
	}
	if cfg.Retention.SessionRetentionRaw == "" {
		cfg.Retention.SessionRetentionRaw = "72h"
	}
	if cfg.Retention.SweepIntervalRaw == "" {
		cfg.Retention.SweepIntervalRaw = "1h"
	}
	if cfg.Receipts.TimeoutRaw == "" {
		cfg.Receipts.TimeoutRaw = "10s"
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 100
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
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

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}

	if c.Bootstrap.DefaultStartupSLASeconds <= 0 {
		return fmt.Errorf("bootstrap.default_startup_sla_seconds must be positive")
	}

	if c.Receipts.Enabled && c.Receipts.Endpoint == "" {
		return fmt.Errorf("receipts.endpoint is required when receipts are enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Retention.SessionRetentionRaw != "" {
		cfg.Retention.SessionRetention, err = time.ParseDuration(cfg.Retention.SessionRetentionRaw)
		if err != nil {
			return fmt.Errorf("parsing session_retention %q: %w", cfg.Retention.SessionRetentionRaw, err)
		}
	}

	if cfg.Retention.SweepIntervalRaw != "" {
		cfg.Retention.SweepInterval, err = time.ParseDuration(cfg.Retention.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sweep_interval %q: %w", cfg.Retention.SweepIntervalRaw, err)
		}
	}

	if cfg.Receipts.TimeoutRaw != "" {
		cfg.Receipts.Timeout, err = time.ParseDuration(cfg.Receipts.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing receipts timeout %q: %w", cfg.Receipts.TimeoutRaw, err)
		}
	}

	return nil
}
