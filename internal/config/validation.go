package config

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for configuration validation. Callers can check with
// errors.Is to distinguish failure kinds.
var (
	ErrInvalidProvider      = errors.New("invalid AI provider")
	ErrMissingProviderKey   = errors.New("missing provider API key")
	ErrInvalidTemperature   = errors.New("temperature must be between 0.0 and 2.0")
	ErrInvalidPort          = errors.New("port must be between 1 and 65535")
	ErrInvalidEnvironment   = errors.New("environment must be development or production")
	ErrInvalidRateLimit     = errors.New("rate_limit must be positive")
	ErrInvalidVectorBackend = errors.New("vector_backend must be local or postgres")
	ErrMissingVectorPath    = errors.New("vector_path is required for the local backend")
	ErrInvalidPostgresHost  = errors.New("postgres host is required")
	ErrInvalidPostgresPort  = errors.New("postgres port must be between 1 and 65535")
	ErrInvalidChunking      = errors.New("chunk_overlap must be smaller than chunk_size")
	ErrInvalidTopK          = errors.New("top_k must be positive")
	ErrInvalidMaxRewrites   = errors.New("max_rewrites must not be negative")
	ErrInvalidBackupRetain  = errors.New("backup.retain must not be negative")
)

// Validate checks the configuration for invalid values.
// Returns the first error encountered (fail-fast).
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY not set for provider %q", ErrMissingProviderKey, c.Provider)
		}
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY not set for provider %q", ErrMissingProviderKey, c.Provider)
		}
	case ProviderOllama:
		// Ollama needs no API key; the host default covers local setups.
	default:
		return fmt.Errorf("%w: %q (supported: openai, googleai, ollama)", ErrInvalidProvider, c.Provider)
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, c.Port)
	}

	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("%w: got %q", ErrInvalidEnvironment, c.Environment)
	}

	if c.RateLimit < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRateLimit, c.RateLimit)
	}

	switch c.VectorBackend {
	case VectorBackendLocal:
		if c.VectorPath == "" {
			return ErrMissingVectorPath
		}
	case VectorBackendPostgres:
		// Uses the postgres_* settings validated below.
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidVectorBackend, c.VectorBackend)
	}

	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.ChunkSize < 1 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_size=%d chunk_overlap=%d", ErrInvalidChunking, c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, c.TopK)
	}
	if c.MaxRewrites < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxRewrites, c.MaxRewrites)
	}

	if c.Backup.Retain < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBackupRetain, c.Backup.Retain)
	}

	return nil
}
