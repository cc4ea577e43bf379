package domain

import "sync"

// RuntimeConfig tracks which backends were selected at startup.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis", "postgres" or "memory"
	StorageBackend string // "postgres" or "memory"

	embeddingModel    string
	generationBackend string
	fallbackActive    bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, storageBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		StorageBackend: storageBackend,
	}
}

// EmbeddingModel returns the model name of the shared embedding function
func (c *RuntimeConfig) EmbeddingModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingModel
}

// GenerationBackend returns the name of the selected generation backend
func (c *RuntimeConfig) GenerationBackend() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationBackend
}

// FallbackActive reports whether the configured backend was replaced by the
// explicit fallback at startup
func (c *RuntimeConfig) FallbackActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallbackActive
}

// EmbeddingAvailable returns whether an embedding service is installed
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	return c.EmbeddingModel() != ""
}

// GenerationAvailable returns whether a generation backend is installed
func (c *RuntimeConfig) GenerationAvailable() bool {
	return c.GenerationBackend() != ""
}

// SetEmbedding records the embedding model in use
func (c *RuntimeConfig) SetEmbedding(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingModel = model
}

// SetGeneration records the generation backend in use
func (c *RuntimeConfig) SetGeneration(backend string, fallback bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generationBackend = backend
	c.fallbackActive = fallback
}

// Status is a snapshot for the status endpoint
type Status struct {
	SessionBackend    string `json:"session_backend"`
	StorageBackend    string `json:"storage_backend"`
	EmbeddingModel    string `json:"embedding_model"`
	GenerationBackend string `json:"generation_backend"`
	FallbackActive    bool   `json:"fallback_active"`
}

// Snapshot returns the current status
func (c *RuntimeConfig) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		SessionBackend:    c.SessionBackend,
		StorageBackend:    c.StorageBackend,
		EmbeddingModel:    c.embeddingModel,
		GenerationBackend: c.generationBackend,
		FallbackActive:    c.fallbackActive,
	}
}
