// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the public NerdGraph endpoint.
const DefaultEndpoint = "https://api.newrelic.com/graphql"

// DefaultMaxResponseSize is the serialized response budget in characters.
const DefaultMaxResponseSize = 20000

// Config holds all application configuration.
type Config struct {
	// New Relic backend configuration
	NewRelic NewRelicConfig `yaml:"newrelic"`

	// Query response configuration
	Response ResponseConfig `yaml:"response"`

	// MCP transport configuration
	MCP MCPConfig `yaml:"mcp"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Metrics endpoint configuration
	Metrics MetricsConfig `yaml:"metrics"`
}

// NewRelicConfig holds NerdGraph connection settings.
type NewRelicConfig struct {
	APIKey    string        `envconfig:"NEW_RELIC_API_KEY" yaml:"api_key"`
	Endpoint  string        `envconfig:"NEW_RELIC_API_ENDPOINT" yaml:"endpoint"`
	Timeout   time.Duration `envconfig:"NEW_RELIC_TIMEOUT" yaml:"timeout"`
	RateLimit float64       `envconfig:"NEW_RELIC_RATE_LIMIT" yaml:"rate_limit"` // requests/sec, 0 = unlimited
}

// ResponseConfig holds settings applied to query responses.
type ResponseConfig struct {
	MaxSize int `envconfig:"NRLOGS_MAX_RESPONSE_SIZE" yaml:"max_size"`
}

// MCPConfig selects the MCP transport. Both empty means stdio.
type MCPConfig struct {
	SocketPath string `envconfig:"NRLOGS_MCP_SOCKET" yaml:"socket_path"`
	TCPAddr    string `envconfig:"NRLOGS_MCP_TCP_ADDR" yaml:"tcp_addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"NRLOGS_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"NRLOGS_LOG_FORMAT" yaml:"format"`
	File   string `envconfig:"NRLOGS_LOG_FILE" yaml:"file"`
}

// MetricsConfig holds the Prometheus endpoint settings. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `envconfig:"NRLOGS_METRICS_ADDR" yaml:"addr"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.NewRelic = NewRelicConfig{
		Endpoint: DefaultEndpoint,
		Timeout:  30 * time.Second,
	}

	cfg.Response = ResponseConfig{
		MaxSize: DefaultMaxResponseSize,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration. A missing API key is not an error
// here; it is reported when a tool is actually called.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.NewRelic.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid endpoint: %q (must be an absolute URL)", c.NewRelic.Endpoint))
	}

	if c.NewRelic.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}

	if c.NewRelic.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if c.Response.MaxSize < 1 {
		errs = append(errs, "max response size must be positive")
	}

	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Sprintf("invalid metrics addr: %q (must be host:port)", c.Metrics.Addr))
		}
	}

	if c.MCP.SocketPath != "" && c.MCP.TCPAddr != "" {
		errs = append(errs, "socket_path and tcp_addr are mutually exclusive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// HasAPIKey reports whether a credential is configured.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.NewRelic.APIKey) != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
