package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

func chunk(docID string, pos int, emb ...float32) *domain.Chunk {
	return &domain.Chunk{
		ID:         domain.ChunkID(docID, pos),
		DocumentID: docID,
		Filename:   docID + ".txt",
		Content:    fmt.Sprintf("%s chunk %d", docID, pos),
		Embedding:  emb,
		Position:   pos,
	}
}

func TestVectorIndex_QueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(0)

	require.NoError(t, idx.Add(ctx, domain.AreaIT, []*domain.Chunk{
		chunk("d1", 0, 1, 0),
		chunk("d1", 1, 0, 1),
		chunk("d1", 2, 1, 1),
	}))

	results, err := idx.Query(ctx, domain.AreaIT, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "d1_chunk_0", results[0].Chunk.ID)
	assert.Equal(t, "d1_chunk_2", results[1].Chunk.ID)
	assert.Equal(t, "d1_chunk_1", results[2].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
	assert.Nil(t, results[0].Chunk.Embedding)
}

func TestVectorIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	require.NoError(t, idx.Add(ctx, domain.AreaHR, []*domain.Chunk{chunk("a", 0, 1, 0)}))
	require.NoError(t, idx.Add(ctx, domain.AreaHR, []*domain.Chunk{chunk("b", 0, 2, 0)}))
	require.NoError(t, idx.Add(ctx, domain.AreaHR, []*domain.Chunk{chunk("c", 0, 3, 0)}))

	results, err := idx.Query(ctx, domain.AreaHR, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Chunk.DocumentID)
	assert.Equal(t, "b", results[1].Chunk.DocumentID)
	assert.Equal(t, "c", results[2].Chunk.DocumentID)
}

func TestVectorIndex_TopK(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	var chunks []*domain.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, chunk("d", i, float32(i+1), 1))
	}
	require.NoError(t, idx.Add(ctx, domain.AreaIT, chunks))

	results, err := idx.Query(ctx, domain.AreaIT, []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Len(t, results, 4)

	results, err = idx.Query(ctx, domain.AreaIT, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorIndex_Idempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(3)
	require.NoError(t, idx.Add(ctx, domain.AreaIT, []*domain.Chunk{
		chunk("d", 0, 1, 2, 3),
		chunk("d", 1, 3, 2, 1),
		chunk("d", 2, 1, 1, 1),
	}))

	first, err := idx.Query(ctx, domain.AreaIT, []float32{1, 2, 2}, 3)
	require.NoError(t, err)
	second, err := idx.Query(ctx, domain.AreaIT, []float32{1, 2, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVectorIndex_AreaIsolation(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Add(ctx, domain.AreaIT, []*domain.Chunk{chunk("it", 0, 1, 0)}))

	results, err := idx.Query(ctx, domain.AreaHR, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Query(ctx, domain.AreaIT, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.AreaIT, results[0].Chunk.Area)
}

func TestVectorIndex_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Add(ctx, domain.AreaIT, []*domain.Chunk{chunk("gone", 0, 1, 0), chunk("kept", 0, 1, 0)}))
	require.NoError(t, idx.Add(ctx, domain.AreaGeneral, []*domain.Chunk{chunk("gone", 1, 0, 1)}))

	removed, err := idx.DeleteByDocument(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for _, area := range domain.TopicAreas {
		results, err := idx.Query(ctx, area, []float32{1, 1}, 10)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, "gone", r.Chunk.DocumentID)
		}
	}

	removed, err = idx.DeleteByDocument(ctx, "gone")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestVectorIndex_AddIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	err := idx.Add(ctx, domain.AreaIT, []*domain.Chunk{chunk("d", 0, 1, 0), chunk("d", 1, 1, 0, 0)})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	count, err := idx.Count(ctx, domain.AreaIT)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = idx.Add(ctx, domain.AreaIT, []*domain.Chunk{chunk("d", 0)})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	err = idx.Add(ctx, domain.TopicArea("Legal"), []*domain.Chunk{chunk("d", 0, 1, 0)})
	assert.True(t, errors.Is(err, domain.ErrInvalidTopicArea))
}

func TestVectorIndex_QueryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(0)
	require.NoError(t, idx.Add(ctx, domain.AreaIT, []*domain.Chunk{chunk("d", 0, 1, 0)}))

	_, err := idx.Query(ctx, domain.AreaIT, []float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestVectorIndex_ConcurrentDeleteIsAtomic(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(2)

	var chunks []*domain.Chunk
	for i := 0; i < 50; i++ {
		chunks = append(chunks, chunk("doc", i, 1, float32(i)))
	}
	require.NoError(t, idx.Add(ctx, domain.AreaIT, chunks))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = idx.DeleteByDocument(ctx, "doc")
	}()

	for i := 0; i < 100; i++ {
		results, err := idx.Query(ctx, domain.AreaIT, []float32{1, 1}, 100)
		require.NoError(t, err)
		if n := len(results); n != 0 && n != 50 {
			t.Fatalf("observed partial delete: %d chunks", n)
		}
	}
	wg.Wait()
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
