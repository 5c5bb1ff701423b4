// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, matching the deployment .env)
//  2. Config file (./putusan.yaml or /etc/putusan/putusan.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, model selection, temperature, embedder
//   - Storage: PostgreSQL case database and vector store backend (storage.go)
//   - Security: API key, trusted hosts, CORS origins, per-IP rate limit
//   - Backup: snapshot directory, cron schedule, retention
//   - Tracing: OTLP trace export (optional)
//
// Sensitive values (API key, database password) are masked in MarshalJSON and
// String. Validation uses sentinel errors checked with errors.Is; Load fails
// fast on the first invalid value.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Vector store backend identifiers used in Config.VectorBackend.
const (
	VectorBackendLocal    = "local"
	VectorBackendPostgres = "postgres"
)

// Environment identifiers used in Config.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultEmbedderModel is the embedding model used for court document
// vectors. text-embedding-3-large outputs 3072 dimensions; the vector
// store schema depends on this (see knowledge.VectorDimension).
const DefaultEmbedderModel = "text-embedding-3-large"

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`       // "openai" (default), "googleai", "ollama"
	ModelName     string  `mapstructure:"model_name" json:"model_name"`   // e.g. "gpt-4o-mini"
	Temperature   float32 `mapstructure:"temperature" json:"temperature"` // 0 for deterministic grading/generation
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string  `mapstructure:"ollama_host" json:"ollama_host"` // only used when provider is "ollama"

	// HTTP server configuration
	Port        int    `mapstructure:"port" json:"port"`
	Environment string `mapstructure:"environment" json:"environment"` // "development" or "production"

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	JSONLogs bool   `mapstructure:"json_logs" json:"json_logs"`

	// Security configuration
	APIKey       string   `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON; empty = open API
	AllowedHosts []string `mapstructure:"allowed_hosts" json:"allowed_hosts"`
	CORSOrigins  []string `mapstructure:"cors_origins" json:"cors_origins"`
	RateLimit    int      `mapstructure:"rate_limit" json:"rate_limit"`   // requests per minute per client IP
	TrustProxy   bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)

	// Case database configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Vector store configuration
	VectorBackend string `mapstructure:"vector_backend" json:"vector_backend"` // "local" (default) or "postgres"
	VectorPath    string `mapstructure:"vector_path" json:"vector_path"`       // on-disk store location for the local backend

	// Retrieval tuning
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	TopK         int `mapstructure:"top_k" json:"top_k"`
	MaxRewrites  int `mapstructure:"max_rewrites" json:"max_rewrites"`

	// Backup configuration (see backup package)
	Backup BackupConfig `mapstructure:"backup" json:"backup"`

	// Tracing configuration (optional OTLP trace export)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// BackupConfig configures vector store snapshots.
type BackupConfig struct {
	Dir      string `mapstructure:"dir" json:"dir"`           // archive output directory
	Schedule string `mapstructure:"schedule" json:"schedule"` // cron expression; empty disables periodic backups
	Retain   int    `mapstructure:"retain" json:"retain"`     // snapshots to keep when pruning (0 = keep all)
}

// TracingConfig configures the OTLP HTTP trace exporter.
// An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // OTLP collector, e.g. "localhost:4318"
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("putusan")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/putusan")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{".", "/etc/putusan"},
			"config_name", "putusan.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model_name", "gpt-4o-mini")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("ollama_host", "http://localhost:11434")

	// Server defaults
	v.SetDefault("port", 8080)
	v.SetDefault("environment", EnvDevelopment)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("json_logs", false)

	// Security defaults
	v.SetDefault("allowed_hosts", []string{"localhost", "127.0.0.1"})
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("rate_limit", 60)
	v.SetDefault("trust_proxy", false)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lexicon")
	v.SetDefault("postgres_password", "lexicon_dev_password")
	v.SetDefault("postgres_db_name", "lexicon_bo")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Vector store defaults
	v.SetDefault("vector_backend", VectorBackendLocal)
	v.SetDefault("vector_path", "./data/vectorstore")

	// Retrieval defaults (chunking matches the summary indexing pipeline)
	v.SetDefault("chunk_size", 500)
	v.SetDefault("chunk_overlap", 100)
	v.SetDefault("top_k", 10)
	v.SetDefault("max_rewrites", 2)

	// Backup defaults
	v.SetDefault("backup.dir", "./backups")
	v.SetDefault("backup.schedule", "")
	v.SetDefault("backup.retain", 7)

	// Tracing defaults (disabled unless endpoint is set)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "putusan")
	v.SetDefault("tracing.environment", EnvDevelopment)
}

// bindEnvVariables binds environment variables explicitly.
// Names mirror the deployment .env used by the docker-compose stack.
//
// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin, not via
// Viper. GEMINI_API_KEY likewise for the googleai provider. Validation checks
// their presence based on the selected provider.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("api_key", "API_KEY")
	mustBind("allowed_hosts", "ALLOWED_HOSTS")
	mustBind("cors_origins", "CORS_ORIGINS")
	mustBind("rate_limit", "RATE_LIMIT")
	mustBind("trust_proxy", "TRUST_PROXY")

	mustBind("port", "PORT")
	mustBind("environment", "ENVIRONMENT")
	mustBind("log_level", "LOG_LEVEL")
	mustBind("json_logs", "JSON_LOGS")

	mustBind("vector_backend", "VECTOR_BACKEND")
	mustBind("vector_path", "VECTOR_PATH")

	mustBind("provider", "PUTUSAN_PROVIDER")
	mustBind("model_name", "PUTUSAN_MODEL_NAME")
	mustBind("embedder_model", "PUTUSAN_EMBEDDER_MODEL")
	mustBind("ollama_host", "PUTUSAN_OLLAMA_HOST")

	mustBind("backup.dir", "BACKUP_DIR")
	mustBind("backup.schedule", "BACKUP_SCHEDULE")
	mustBind("backup.retain", "BACKUP_RETAIN")

	mustBind("tracing.endpoint", "OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matches against real secret characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer secrets keep the first
// and last 2 characters for debug utility.
//
// THREAT MODEL: defends against accidental logging of real secrets. It is not
// cryptographically secure; if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - APIKey
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o-mini", "googleai/gemini-2.5-flash",
// "ollama/llama3.3". If ModelName already contains a "/", it is returned
// as-is.
func (c *Config) FullModelName() string {
	for _, r := range c.ModelName {
		if r == '/' {
			return c.ModelName
		}
	}
	switch c.Provider {
	case ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}

// IsProduction reports whether the service runs in production mode.
// Production tightens security behavior (HSTS headers, startup warnings).
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
