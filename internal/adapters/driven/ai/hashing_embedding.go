package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"

	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Ensure HashingEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*HashingEmbedding)(nil)

const (
	// DefaultHashingDimensions is the vector size of the local embedding
	DefaultHashingDimensions = 1024

	hashingModelPrefix = "local-hashing-"
)

// HashingEmbedding is the Local embedding variant: signed feature hashing of
// content tokens, L2-normalized. Texts that share no tokens have a cosine
// similarity of zero unless two tokens collide in the same bucket.
type HashingEmbedding struct {
	dimensions int
}

// NewHashingEmbedding creates a local embedding service
func NewHashingEmbedding(dimensions int) *HashingEmbedding {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &HashingEmbedding{dimensions: dimensions}
}

// Embed generates embeddings for multiple texts
func (h *HashingEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a question
func (h *HashingEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.vector(query), nil
}

func (h *HashingEmbedding) vector(text string) []float32 {
	v := make([]float32, h.dimensions)
	for _, token := range Tokenize(text) {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(token))
		sum := hasher.Sum64()

		idx := sum % uint64(h.dimensions)
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// Dimensions returns the embedding dimension size
func (h *HashingEmbedding) Dimensions() int {
	return h.dimensions
}

// Model returns the model name, including the dimension
func (h *HashingEmbedding) Model() string {
	return hashingModelPrefix + strconv.Itoa(h.dimensions)
}

// HealthCheck always succeeds
func (h *HashingEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (h *HashingEmbedding) Close() error {
	return nil
}
