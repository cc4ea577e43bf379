// Package memory provides process-local implementations of the driven ports.
// They back the service when no DATABASE_URL is configured and are used by
// the service and acceptance tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

type indexEntry struct {
	chunk *domain.Chunk
	seq   uint64
}

// VectorIndex keeps one slice of chunks per topic area and scores queries
// with cosine similarity. A single RWMutex makes Add and DeleteByDocument
// atomic with respect to Query.
type VectorIndex struct {
	mu         sync.RWMutex
	areas      map[domain.TopicArea][]indexEntry
	dimensions int
	seq        uint64
}

// NewVectorIndex creates an empty index. The dimension is fixed by the first
// Add when dimensions is zero.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		areas:      make(map[domain.TopicArea][]indexEntry),
		dimensions: dimensions,
	}
}

// Add stores chunks under an area, all or none
func (v *VectorIndex) Add(ctx context.Context, area domain.TopicArea, chunks []*domain.Chunk) error {
	if !area.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTopicArea, area)
	}
	if len(chunks) == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dims := v.dimensions
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: %w: empty embedding", c.ID, domain.ErrInvalidInput)
		}
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return fmt.Errorf("chunk %s: %w: got %d, want %d", c.ID, domain.ErrDimensionMismatch, len(c.Embedding), dims)
		}
	}

	v.dimensions = dims
	for _, c := range chunks {
		v.seq++
		stored := *c
		stored.Area = area
		stored.Embedding = append([]float32(nil), c.Embedding...)
		v.areas[area] = append(v.areas[area], indexEntry{chunk: &stored, seq: v.seq})
	}
	return nil
}

// Query returns the k most similar chunks of the area, ties in insertion order
func (v *VectorIndex) Query(ctx context.Context, area domain.TopicArea, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	entries := v.areas[area]
	if len(entries) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(embedding) != v.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(embedding), v.dimensions)
	}

	type scored struct {
		entry indexEntry
		score float64
	}
	results := make([]scored, len(entries))
	for i, e := range entries {
		results[i] = scored{entry: e, score: CosineSimilarity(embedding, e.chunk.Embedding)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].entry.seq < results[j].entry.seq
	})

	if len(results) > k {
		results = results[:k]
	}
	out := make([]domain.ScoredChunk, len(results))
	for i, r := range results {
		c := *r.entry.chunk
		c.Embedding = nil
		out[i] = domain.ScoredChunk{Chunk: &c, Score: r.score}
	}
	return out, nil
}

// DeleteByDocument removes every chunk of a document in every area
func (v *VectorIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	removed := 0
	for area, entries := range v.areas {
		kept := entries[:0]
		for _, e := range entries {
			if e.chunk.DocumentID == documentID {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		v.areas[area] = kept
	}
	return removed, nil
}

// Count returns the number of chunks stored under an area
func (v *VectorIndex) Count(ctx context.Context, area domain.TopicArea) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.areas[area]), nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
