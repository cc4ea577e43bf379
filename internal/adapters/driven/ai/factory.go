package ai

import (
	"fmt"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Factory creates AI services based on configuration. Hosted services it
// creates share one rate limiter.
type Factory struct {
	limiter *RateLimiter
}

// NewFactory creates a factory whose hosted services are not rate limited
func NewFactory() *Factory {
	return &Factory{}
}

// NewFactoryWithRateLimit creates a factory whose hosted services share a
// token bucket
func NewFactoryWithRateLimit(cfg RateLimitConfig) *Factory {
	return &Factory{limiter: NewRateLimiter(cfg)}
}

// CreateEmbeddingService creates the embedding service from settings
func (f *Factory) CreateEmbeddingService(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderLocal, "":
		return NewHashingEmbedding(settings.Dimensions), nil
	case domain.AIProviderOpenAI:
		svc, err := NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
		if err != nil {
			return nil, err
		}
		svc.limiter = f.limiter
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateGenerationBackend creates a generation backend from settings
func (f *Factory) CreateGenerationBackend(settings domain.GenerationSettings) (driven.GenerationBackend, error) {
	switch settings.Provider {
	case domain.AIProviderLocal, "":
		return NewLocalGeneration(DefaultMaxSentences), nil
	case domain.AIProviderOpenAI:
		backend, err := NewOpenAIGeneration(settings)
		if err != nil {
			return nil, err
		}
		backend.limiter = f.limiter
		return backend, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
