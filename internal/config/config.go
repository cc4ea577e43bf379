// Package config loads PolicyPal settings from the environment. An optional
// .env file in the working directory is read first; real environment
// variables take precedence over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// Config is the complete process configuration
type Config struct {
	// Server
	Port        int
	CORSOrigins []string
	JWTSecret   string
	TeamID      string
	TokenTTL    time.Duration

	// Storage. An empty DatabaseURL selects the in-memory stores.
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	InitSchema      bool // Apply schema.sql at startup

	// Redis. An empty RedisURL keeps sessions and locks with the storage backend.
	RedisURL          string
	EmbeddingCacheTTL time.Duration // Zero disables the cache

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// IngestConcurrency bounds the files the ingest mode processes at once
	IngestConcurrency int

	// Retrieval
	TopK     int
	MinScore float64

	// Query
	QueryTimeout time.Duration

	// AI backends
	Embedding          domain.EmbeddingSettings
	Generation         domain.GenerationSettings
	GenerationFallback domain.AIProvider

	// VerifyBackends health-checks both AI services before serving
	VerifyBackends bool

	// Hosted API rate limit shared by embeddings and generation. Zero disables it.
	OpenAIRequestsPerSecond float64
	OpenAIBurst             int

	// Role descriptions, from RolesFile when set
	RolesFile string
	Roles     Roles
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	apiKey := getEnv("OPENAI_API_KEY", "")
	baseURL := getEnv("OPENAI_BASE_URL", "")

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:9002,http://localhost:3000")),
		JWTSecret:   getEnv("JWT_SECRET", "development-secret-change-in-production"),
		TeamID:      getEnv("TEAM_ID", "default-team"),
		TokenTTL:    getEnvDuration("TOKEN_TTL", 24*time.Hour),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
		InitSchema:      getEnvBool("DB_INIT_SCHEMA", true),

		RedisURL:          getEnv("REDIS_URL", ""),
		EmbeddingCacheTTL: getEnvDuration("EMBEDDING_CACHE_TTL", 24*time.Hour),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),

		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),

		TopK:     getEnvInt("RETRIEVAL_TOP_K", 5),
		MinScore: getEnvFloat("RETRIEVAL_MIN_SCORE", 0.1),

		QueryTimeout: getEnvDuration("QUERY_TIMEOUT", 60*time.Second),

		Embedding: domain.EmbeddingSettings{
			Provider:   domain.AIProvider(strings.ToLower(getEnv("EMBEDDING_PROVIDER", "local"))),
			Model:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			APIKey:     apiKey,
			BaseURL:    baseURL,
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1024),
		},
		Generation: domain.GenerationSettings{
			Provider:    domain.AIProvider(strings.ToLower(getEnv("LLM_PROVIDER", "local"))),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o"),
			APIKey:      apiKey,
			BaseURL:     baseURL,
			Temperature: float32(getEnvFloat("LLM_TEMPERATURE", 0.3)),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		},
		GenerationFallback: domain.AIProvider(strings.ToLower(getEnv("GENERATION_FALLBACK", ""))),
		VerifyBackends:     getEnvBool("AI_STARTUP_CHECK", true),

		OpenAIRequestsPerSecond: getEnvFloat("OPENAI_RATE_LIMIT_RPS", 5),
		OpenAIBurst:             getEnvInt("OPENAI_RATE_LIMIT_BURST", 10),

		RolesFile: getEnv("ROLES_FILE", ""),
	}

	roles, err := LoadRoles(cfg.RolesFile)
	if err != nil {
		return nil, err
	}
	cfg.Roles = roles

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap))
	}
	if c.IngestConcurrency < 1 {
		errs = append(errs, fmt.Errorf("INGEST_CONCURRENCY must be at least 1, got %d", c.IngestConcurrency))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_TOP_K must be at least 1, got %d", c.TopK))
	}
	if c.MinScore < -1 || c.MinScore > 1 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_MIN_SCORE must be in [-1, 1], got %g", c.MinScore))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, errors.New("QUERY_TIMEOUT must be positive"))
	}
	if c.EmbeddingCacheTTL < 0 {
		errs = append(errs, errors.New("EMBEDDING_CACHE_TTL must not be negative"))
	}

	if !c.Embedding.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("%w: EMBEDDING_PROVIDER %q", domain.ErrInvalidProvider, c.Embedding.Provider))
	} else if !c.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER %s requires OPENAI_API_KEY", c.Embedding.Provider))
	}
	if c.Embedding.Provider == domain.AIProviderLocal && c.Embedding.Dimensions < 1 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.Embedding.Dimensions))
	}

	if !c.Generation.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("%w: LLM_PROVIDER %q", domain.ErrInvalidProvider, c.Generation.Provider))
	} else if c.Generation.Provider.RequiresAPIKey() && c.Generation.APIKey == "" && c.GenerationFallback == "" {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %s requires OPENAI_API_KEY unless GENERATION_FALLBACK=local", c.Generation.Provider))
	}
	if c.GenerationFallback != "" && c.GenerationFallback != domain.AIProviderLocal {
		errs = append(errs, fmt.Errorf("GENERATION_FALLBACK must be empty or local, got %q", c.GenerationFallback))
	}
	if c.OpenAIRequestsPerSecond < 0 {
		errs = append(errs, errors.New("OPENAI_RATE_LIMIT_RPS must not be negative"))
	}
	if c.OpenAIRequestsPerSecond > 0 && c.OpenAIBurst < 1 {
		errs = append(errs, fmt.Errorf("OPENAI_RATE_LIMIT_BURST must be at least 1, got %d", c.OpenAIBurst))
	}
	if c.Generation.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.Generation.MaxTokens))
	}

	return errors.Join(errs...)
}

// StorageBackend names the document and history backend
func (c *Config) StorageBackend() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}

// SessionBackend names the session and lock backend
func (c *Config) SessionBackend() string {
	if c.RedisURL != "" {
		return "redis"
	}
	return c.StorageBackend()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("90s") and bare seconds ("90")
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
