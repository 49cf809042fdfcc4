package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for glimpse-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database password, provider API keys) must only come from
// environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Engine behaviour knobs
	Engine EngineConfig `yaml:"engine"`

	// Alert evaluation configuration
	Alerts AlertsConfig `yaml:"alerts"`

	// LLM provider configuration for the orchestrator
	LLM LLMConfig `yaml:"llm"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT tokens are validated against
	// JWKS. Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"glimpse"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"glimpse_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// EngineConfig holds query engine behaviour knobs. The pagination and row
// ceilings are hard caps: intents asking for more are clamped, never honored.
type EngineConfig struct {
	// MaxPageSize caps page_size on paginated queries.
	MaxPageSize int `yaml:"max_page_size" env:"ENGINE_MAX_PAGE_SIZE" env-default:"100"`
	// MaxLimit caps limit on non-paginated queries.
	MaxLimit int `yaml:"max_limit" env:"ENGINE_MAX_LIMIT" env-default:"1000"`
	// AbortEarly stops validation at the first failing stage.
	AbortEarly bool `yaml:"abort_early" env:"ENGINE_ABORT_EARLY" env-default:"true"`
	// InjectionAsError treats injection-scan findings as hard failures.
	InjectionAsError bool `yaml:"injection_as_error" env:"ENGINE_INJECTION_AS_ERROR" env-default:"true"`
	// DailyToolQuota is the per-tenant daily tool invocation budget enforced
	// by the usage gate. Zero disables the gate.
	DailyToolQuota int `yaml:"daily_tool_quota" env:"ENGINE_DAILY_TOOL_QUOTA" env-default:"1000"`
}

// AlertsConfig holds metric alert evaluation settings.
type AlertsConfig struct {
	// ThresholdsFile is an optional YAML file with per-metric threshold
	// overrides. Empty means defaults for every metric.
	ThresholdsFile string `yaml:"thresholds_file" env:"ALERT_THRESHOLDS_FILE" env-default:""`
	// DeadbandPercent suppresses summary trend language for changes smaller
	// than this percentage.
	DeadbandPercent float64 `yaml:"deadband_percent" env:"ALERT_DEADBAND_PERCENT" env-default:"5"`
	// ZScoreThreshold flags metric points whose z-score exceeds this value.
	ZScoreThreshold float64 `yaml:"z_score_threshold" env:"ALERT_Z_SCORE_THRESHOLD" env-default:"2"`
	// SmoothingAlpha is the exponential smoothing factor for trend baselines.
	SmoothingAlpha float64 `yaml:"smoothing_alpha" env:"ALERT_SMOOTHING_ALPHA" env-default:"0.3"`
}

// LLMConfig holds provider settings for the orchestrator loop.
type LLMConfig struct {
	// Provider selects the tool-call loop implementation: "openai" or
	// "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`

	OpenAIAPIKey string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML
	OpenAIModel  string `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"gpt-4o"`

	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-20250514"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.MaxPageSize < 1 {
		return fmt.Errorf("engine.max_page_size must be at least 1, got %d", c.Engine.MaxPageSize)
	}
	if c.Engine.MaxLimit < 1 {
		return fmt.Errorf("engine.max_limit must be at least 1, got %d", c.Engine.MaxLimit)
	}
	if c.Alerts.SmoothingAlpha <= 0 || c.Alerts.SmoothingAlpha > 1 {
		return fmt.Errorf("alerts.smoothing_alpha must be in (0, 1], got %g", c.Alerts.SmoothingAlpha)
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	if c.Auth.EnableVerification && len(c.Auth.JWKSEndpoints) == 0 {
		return fmt.Errorf("auth.jwks_endpoints is required when verification is enabled")
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
