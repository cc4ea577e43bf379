package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
	"github.com/custodia-labs/policypal/internal/runtime"
)

// Retrieval defaults
const (
	DefaultTopK     = 5
	DefaultMinScore = 0.1
)

// RetrieverConfig tunes retrieval
type RetrieverConfig struct {
	// TopK is the number of chunks asked of the index per area
	TopK int

	// MinScore drops chunks whose cosine similarity is below it. Zero keeps
	// every top-k result.
	MinScore float64

	Logger *slog.Logger
}

// Retriever fetches the context one area contributes to a question.
// The question is embedded with the shared embedding service, the same one
// ingestion writes with.
type Retriever struct {
	index    driven.VectorIndex
	services *runtime.Services
	topK     int
	minScore float64
	logger   *slog.Logger
}

// NewRetriever creates a Retriever
func NewRetriever(index driven.VectorIndex, services *runtime.Services, config RetrieverConfig) *Retriever {
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.MinScore < 0 {
		config.MinScore = 0
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Retriever{
		index:    index,
		services: services,
		topK:     config.TopK,
		minScore: config.MinScore,
		logger:   config.Logger,
	}
}

// Retrieve returns the snippets and deduplicated source filenames of the
// area's most similar chunks. An area with nothing relevant yields an empty
// Retrieval, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, area domain.TopicArea) (domain.Retrieval, error) {
	result := domain.Retrieval{Area: area, Snippets: []string{}, Sources: []string{}}

	if !area.IsValid() {
		return result, fmt.Errorf("%w: %q", domain.ErrInvalidTopicArea, area)
	}

	embedder := r.services.EmbeddingService()
	if embedder == nil {
		return result, fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}

	embedding, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		return result, err
	}
	if zeroNorm(embedding) {
		// A question made only of stopwords has no direction: nothing is
		// similar to it.
		r.logger.Debug("question has an empty embedding", "area", area)
		return result, nil
	}

	scored, err := r.index.Query(ctx, area, embedding, r.topK)
	if err != nil {
		return result, fmt.Errorf("query %s index: %w", area, err)
	}

	seen := make(map[string]bool)
	for _, sc := range scored {
		if sc.Chunk == nil || math.IsNaN(sc.Score) || sc.Score < r.minScore {
			continue
		}
		result.Snippets = append(result.Snippets, sc.Chunk.Content)
		if name := sc.Chunk.Filename; name != "" && !seen[name] {
			seen[name] = true
			result.Sources = append(result.Sources, name)
		}
	}

	r.logger.Debug("retrieved context",
		"area", area,
		"candidates", len(scored),
		"snippets", len(result.Snippets))
	return result, nil
}

func zeroNorm(vec []float32) bool {
	for _, x := range vec {
		if x != 0 {
			return false
		}
	}
	return true
}
