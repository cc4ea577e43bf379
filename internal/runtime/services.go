package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// BackendFactory builds the AI services from settings
type BackendFactory interface {
	CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error)
	CreateGenerationBackend(settings domain.GenerationSettings) (driven.GenerationBackend, error)
}

// Services holds the process-wide AI services: exactly one embedding
// function shared by ingestion and retrieval, and one generation backend.
// Both are installed at startup and never switched per call.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks what was selected
	config *domain.RuntimeConfig

	embeddingService  driven.EmbeddingService
	generationBackend driven.GenerationBackend
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the shared embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// GenerationBackend returns the generation backend (may be nil)
func (s *Services) GenerationBackend() driven.GenerationBackend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generationBackend
}

// SetEmbeddingService installs the embedding service.
// Closes the old service if present. Updates config.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil && s.embeddingService != svc {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	if svc == nil {
		s.config.SetEmbedding("")
		return
	}
	s.config.SetEmbedding(svc.Model())
}

// SetGenerationBackend installs the generation backend. fallback marks a
// backend that replaced the configured one.
// Closes the old backend if present. Updates config.
func (s *Services) SetGenerationBackend(backend driven.GenerationBackend, fallback bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generationBackend != nil && s.generationBackend != backend {
		_ = s.generationBackend.Close()
	}

	s.generationBackend = backend
	if backend == nil {
		s.config.SetGeneration("", false)
		return
	}
	s.config.SetGeneration(backend.Name(), fallback)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.generationBackend != nil {
		_ = s.generationBackend.Close()
		s.generationBackend = nil
	}

	s.config.SetEmbedding("")
	s.config.SetGeneration("", false)

	return nil
}

// ValidateAndSetEmbedding validates connectivity before installing the embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetGeneration validates connectivity before installing the generation backend
func (s *Services) ValidateAndSetGeneration(ctx context.Context, backend driven.GenerationBackend, fallback bool) error {
	if backend == nil {
		s.SetGenerationBackend(nil, false)
		return nil
	}

	if err := backend.Ping(ctx); err != nil {
		_ = backend.Close()
		return err
	}

	s.SetGenerationBackend(backend, fallback)
	return nil
}

// Selection describes the backends requested by configuration
type Selection struct {
	Embedding  domain.EmbeddingSettings
	Generation domain.GenerationSettings

	// Fallback names the provider installed when the configured generation
	// backend cannot be created. Empty disables the fallback.
	Fallback domain.AIProvider

	// WrapEmbedding, when set, decorates the embedding service before it is
	// installed (the Redis embedding cache)
	WrapEmbedding func(driven.EmbeddingService) driven.EmbeddingService

	// Verify health-checks both services before installing them. A
	// generation backend that fails the check is treated like one that cannot
	// be created.
	Verify bool

	Logger *slog.Logger
}

// Install creates and installs both AI services from the selection.
// A generation backend that cannot be created, or fails its check when
// Verify is set, fails startup unless an explicit fallback is configured.
// The fallback is then installed, flagged in the runtime config and logged
// at WARN. The embedding service has no fallback: indexed vectors belong to
// one model.
func (s *Services) Install(ctx context.Context, factory BackendFactory, sel Selection) error {
	logger := sel.Logger
	if logger == nil {
		logger = slog.Default()
	}

	embedding, err := factory.CreateEmbeddingService(sel.Embedding)
	if err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}
	if sel.WrapEmbedding != nil {
		embedding = sel.WrapEmbedding(embedding)
	}
	if err := s.installEmbedding(ctx, embedding, sel.Verify); err != nil {
		return fmt.Errorf("embedding service: %w", err)
	}

	backend, err := s.createGeneration(factory, sel.Generation)
	if err == nil {
		err = s.installGeneration(ctx, backend, false, sel.Verify)
	}
	if err == nil {
		return nil
	}
	if sel.Fallback == "" {
		return fmt.Errorf("generation backend: %w", err)
	}

	fallback, fbErr := factory.CreateGenerationBackend(domain.GenerationSettings{Provider: sel.Fallback})
	if fbErr != nil {
		return fmt.Errorf("fallback generation backend: %w", fbErr)
	}
	if fbErr := s.installGeneration(ctx, fallback, true, sel.Verify); fbErr != nil {
		return fmt.Errorf("fallback generation backend: %w", fbErr)
	}
	logger.Warn("generation backend unavailable, using explicit fallback",
		"configured", sel.Generation.Provider,
		"fallback", fallback.Name(),
		"error", err)
	return nil
}

func (s *Services) installEmbedding(ctx context.Context, svc driven.EmbeddingService, verify bool) error {
	if verify {
		return s.ValidateAndSetEmbedding(ctx, svc)
	}
	s.SetEmbeddingService(svc)
	return nil
}

func (s *Services) installGeneration(ctx context.Context, backend driven.GenerationBackend, fallback, verify bool) error {
	if verify {
		return s.ValidateAndSetGeneration(ctx, backend, fallback)
	}
	s.SetGenerationBackend(backend, fallback)
	return nil
}

func (s *Services) createGeneration(factory BackendFactory, settings domain.GenerationSettings) (driven.GenerationBackend, error) {
	if settings.Provider != "" && !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, settings.Provider)
	}
	return factory.CreateGenerationBackend(settings)
}
