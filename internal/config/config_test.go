package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.NewRelic.Endpoint != DefaultEndpoint {
		t.Errorf("NewRelic.Endpoint = %s, want %s", cfg.NewRelic.Endpoint, DefaultEndpoint)
	}
	if cfg.NewRelic.Timeout != 30*time.Second {
		t.Errorf("NewRelic.Timeout = %v, want 30s", cfg.NewRelic.Timeout)
	}
	if cfg.Response.MaxSize != 20000 {
		t.Errorf("Response.MaxSize = %d, want 20000", cfg.Response.MaxSize)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NEW_RELIC_API_KEY", "NRAK-TEST")
	t.Setenv("NEW_RELIC_API_ENDPOINT", "https://api.eu.newrelic.com/graphql")
	t.Setenv("NEW_RELIC_TIMEOUT", "5s")
	t.Setenv("NRLOGS_MAX_RESPONSE_SIZE", "5000")
	t.Setenv("NRLOGS_LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.NewRelic.APIKey != "NRAK-TEST" {
		t.Errorf("NewRelic.APIKey = %s, want NRAK-TEST", cfg.NewRelic.APIKey)
	}
	if cfg.NewRelic.Endpoint != "https://api.eu.newrelic.com/graphql" {
		t.Errorf("NewRelic.Endpoint = %s", cfg.NewRelic.Endpoint)
	}
	if cfg.NewRelic.Timeout != 5*time.Second {
		t.Errorf("NewRelic.Timeout = %v, want 5s", cfg.NewRelic.Timeout)
	}
	if cfg.Response.MaxSize != 5000 {
		t.Errorf("Response.MaxSize = %d, want 5000", cfg.Response.MaxSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if !cfg.HasAPIKey() {
		t.Error("HasAPIKey() = false, want true")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
newrelic:
  endpoint: "http://localhost:9999/graphql"
  timeout: 10s
  rate_limit: 2.5
response:
  max_size: 1234
mcp:
  tcp_addr: "127.0.0.1:7777"
log:
  level: warn
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("NRLOGS_LOG_LEVEL", "error")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.NewRelic.Endpoint != "http://localhost:9999/graphql" {
		t.Errorf("NewRelic.Endpoint = %s", cfg.NewRelic.Endpoint)
	}
	if cfg.NewRelic.Timeout != 10*time.Second {
		t.Errorf("NewRelic.Timeout = %v, want 10s", cfg.NewRelic.Timeout)
	}
	if cfg.NewRelic.RateLimit != 2.5 {
		t.Errorf("NewRelic.RateLimit = %v, want 2.5", cfg.NewRelic.RateLimit)
	}
	if cfg.Response.MaxSize != 1234 {
		t.Errorf("Response.MaxSize = %d, want 1234", cfg.Response.MaxSize)
	}
	if cfg.MCP.TCPAddr != "127.0.0.1:7777" {
		t.Errorf("MCP.TCPAddr = %s", cfg.MCP.TCPAddr)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
	}
	// env wins over file
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %s, want error", cfg.Log.Level)
	}
	if cfg.HasAPIKey() {
		t.Error("HasAPIKey() = true, want false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "missing api key is allowed",
			modify: func(c *Config) {
				c.NewRelic.APIKey = ""
			},
			wantErr: false,
		},
		{
			name: "relative endpoint",
			modify: func(c *Config) {
				c.NewRelic.Endpoint = "/graphql"
			},
			wantErr: true,
		},
		{
			name: "zero timeout",
			modify: func(c *Config) {
				c.NewRelic.Timeout = 0
			},
			wantErr: true,
		},
		{
			name: "negative rate limit",
			modify: func(c *Config) {
				c.NewRelic.RateLimit = -1
			},
			wantErr: true,
		},
		{
			name: "zero max response size",
			modify: func(c *Config) {
				c.Response.MaxSize = 0
			},
			wantErr: true,
		},
		{
			name: "socket and tcp together",
			modify: func(c *Config) {
				c.MCP.SocketPath = "/tmp/nrlogs.sock"
				c.MCP.TCPAddr = "127.0.0.1:7777"
			},
			wantErr: true,
		},
		{
			name: "metrics addr",
			modify: func(c *Config) {
				c.Metrics.Addr = ":9464"
			},
			wantErr: false,
		},
		{
			name: "metrics addr without port",
			modify: func(c *Config) {
				c.Metrics.Addr = "localhost"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid log format",
			modify: func(c *Config) {
				c.Log.Format = "xml"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{}

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}
