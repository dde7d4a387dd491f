// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
  jwt_issuer: "bootgate"

bootstrap:
  default_tenant_key: "acme"
  default_startup_sla_seconds: 90

retention:
  session_retention: "48h"
  sweep_interval: "30m"

receipts:
  enabled: false

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.JWTIssuer != "bootgate" {
		t.Errorf("Auth.JWTIssuer = %q, want %q", cfg.Auth.JWTIssuer, "bootgate")
	}
	if cfg.Bootstrap.DefaultTenantKey != "acme" {
		t.Errorf("Bootstrap.DefaultTenantKey = %q, want %q", cfg.Bootstrap.DefaultTenantKey, "acme")
	}
	if cfg.Bootstrap.DefaultStartupSLASeconds != 90 {
		t.Errorf("Bootstrap.DefaultStartupSLASeconds = %d, want 90", cfg.Bootstrap.DefaultStartupSLASeconds)
	}
	if cfg.Retention.SessionRetention != 48*time.Hour {
		t.Errorf("Retention.SessionRetention = %v, want 48h", cfg.Retention.SessionRetention)
	}
	if cfg.Retention.SweepInterval != 30*time.Minute {
		t.Errorf("Retention.SweepInterval = %v, want 30m", cfg.Retention.SweepInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.APIKeyHeader != "X-API-Key" {
		t.Errorf("Auth.APIKeyHeader = %q, want default X-API-Key", cfg.Auth.APIKeyHeader)
	}
	if cfg.Bootstrap.DefaultTenantKey != "default" {
		t.Errorf("Bootstrap.DefaultTenantKey = %q, want default", cfg.Bootstrap.DefaultTenantKey)
	}
	if cfg.Bootstrap.DefaultStartupSLASeconds != 120 {
		t.Errorf("Bootstrap.DefaultStartupSLASeconds = %d, want 120", cfg.Bootstrap.DefaultStartupSLASeconds)
	}
	if cfg.Retention.SessionRetention != 72*time.Hour {
		t.Errorf("Retention.SessionRetention = %v, want 72h", cfg.Retention.SessionRetention)
	}
	if cfg.Retention.SweepInterval != time.Hour {
		t.Errorf("Retention.SweepInterval = %v, want 1h", cfg.Retention.SweepInterval)
	}
	if cfg.Receipts.Timeout != 10*time.Second {
		t.Errorf("Receipts.Timeout = %v, want 10s", cfg.Receipts.Timeout)
	}
	if cfg.RateLimit.RequestsPerMinute != 100 {
		t.Errorf("RateLimit.RequestsPerMinute = %d, want 100", cfg.RateLimit.RequestsPerMinute)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BOOTGATE_TEST_SECRET", "supersecretvalue-supersecretvalue")

	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "${BOOTGATE_TEST_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "supersecretvalue-supersecretvalue" {
		t.Errorf("Auth.JWTSecret = %q, env var not expanded", cfg.Auth.JWTSecret)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: "./test.db"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
`,
			wantErr: "server.http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: ":8080"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
`,
			wantErr: "database.path",
		},
		{
			name: "short jwt secret",
			content: `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "tooshort"
`,
			wantErr: "jwt_secret",
		},
		{
			name: "receipts enabled without endpoint",
			content: `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
receipts:
  enabled: true
`,
			wantErr: "receipts.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
retention:
  session_retention: "three days"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "session_retention") {
		t.Errorf("Load() error = %v, want mention of session_retention", err)
	}
}
