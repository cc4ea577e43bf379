package driven

import (
	"context"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// GenerationBackend produces expert analyses and coordinated answers.
// Implementations are interchangeable; the choice affects quality only.
type GenerationBackend interface {
	// Generate produces text for the prompt
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)

	// Name identifies the backend for logs and status ("openai", "local")
	Name() string

	// Ping verifies the backend is available
	Ping(ctx context.Context) error

	// Close releases resources held by the backend
	Close() error
}
