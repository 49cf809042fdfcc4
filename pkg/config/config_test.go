package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, yamlContent string) {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeTestConfig(t, `
port: "3443"
env: "test"
auth:
  enable_verification: false
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
`)

	os.Unsetenv("PGHOST")
	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host from YAML, got %s", cfg.Database.Host)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
}

func TestLoad_EngineDefaults(t *testing.T) {
	writeTestConfig(t, `
auth:
  enable_verification: false
`)

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Engine.MaxPageSize != 100 {
		t.Errorf("expected default MaxPageSize=100, got %d", cfg.Engine.MaxPageSize)
	}
	if cfg.Engine.MaxLimit != 1000 {
		t.Errorf("expected default MaxLimit=1000, got %d", cfg.Engine.MaxLimit)
	}
	if !cfg.Engine.AbortEarly {
		t.Error("expected AbortEarly default true")
	}
	if !cfg.Engine.InjectionAsError {
		t.Error("expected InjectionAsError default true")
	}
	if cfg.Alerts.DeadbandPercent != 5 {
		t.Errorf("expected default DeadbandPercent=5, got %g", cfg.Alerts.DeadbandPercent)
	}
	if cfg.Alerts.ZScoreThreshold != 2 {
		t.Errorf("expected default ZScoreThreshold=2, got %g", cfg.Alerts.ZScoreThreshold)
	}
}

func TestLoad_VerificationRequiresJWKS(t *testing.T) {
	writeTestConfig(t, `
auth:
  enable_verification: true
`)
	os.Unsetenv("JWKS_ENDPOINTS")

	_, err := Load("dev")
	if err == nil {
		t.Fatal("expected error when verification enabled without JWKS endpoints")
	}
	if !strings.Contains(err.Error(), "jwks_endpoints") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseJWKSEndpoints(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "empty",
			input: "",
			want:  map[string]string{},
		},
		{
			name:  "single pair",
			input: "https://auth.glimpse.dev=https://auth.glimpse.dev/.well-known/jwks.json",
			want: map[string]string{
				"https://auth.glimpse.dev": "https://auth.glimpse.dev/.well-known/jwks.json",
			},
		},
		{
			name:  "multiple pairs with spaces",
			input: "a=1, b=2",
			want:  map[string]string{"a": "1", "b": "2"},
		},
		{
			name:  "malformed pair skipped",
			input: "a=1,nonsense",
			want:  map[string]string{"a": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseJWKSEndpoints(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("endpoint %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "glimpse",
		Password: "hunter2",
		Database: "glimpse_engine",
		SSLMode:  "disable",
	}
	got := db.ConnectionString()
	want := "host=localhost port=5432 user=glimpse password=hunter2 dbname=glimpse_engine sslmode=disable"
	if got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
