package driven

import (
	"context"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// VectorIndex stores chunk embeddings in one collection per topic area
type VectorIndex interface {
	// Add stores chunks under an area. Either all chunks are stored or none.
	Add(ctx context.Context, area domain.TopicArea, chunks []*domain.Chunk) error

	// Query returns up to k chunks of the area ordered by descending cosine
	// similarity, ties broken by insertion order
	Query(ctx context.Context, area domain.TopicArea, embedding []float32, k int) ([]domain.ScoredChunk, error)

	// DeleteByDocument removes every chunk of a document in every area.
	// Concurrent queries observe either all or none of the chunks.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Count returns the number of chunks stored under an area
	Count(ctx context.Context, area domain.TopicArea) (int, error)
}
