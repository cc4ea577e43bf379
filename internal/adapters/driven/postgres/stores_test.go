package postgres

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// setupTestDB connects to POLICYPAL_TEST_DATABASE_URL, a PostgreSQL with
// the pgvector extension available, and skips when it is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("POLICYPAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("POLICYPAL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, PoolOptions{URL: url})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestVectorIndex_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	index := NewVectorIndex(db)
	docs := NewDocumentStore(db)

	docID := uuid.New().String()
	chunks := []*domain.Chunk{
		{ID: domain.ChunkID(docID, 0), DocumentID: docID, Filename: "it.md", Content: "VPN required.", Embedding: []float32{1, 0, 0}, Position: 0},
		{ID: domain.ChunkID(docID, 1), DocumentID: docID, Filename: "it.md", Content: "Same direction.", Embedding: []float32{2, 0, 0}, Position: 1},
		{ID: domain.ChunkID(docID, 2), DocumentID: docID, Filename: "it.md", Content: "Orthogonal.", Embedding: []float32{0, 1, 0}, Position: 2},
	}
	require.NoError(t, index.Add(ctx, domain.AreaIT, chunks))
	require.NoError(t, docs.Save(ctx, &domain.Document{ID: docID, Filename: "it.md", Area: domain.AreaIT, ChunkCount: 3, CreatedAt: time.Now().UTC()}))
	t.Cleanup(func() {
		_, _ = index.DeleteByDocument(ctx, docID)
		_ = docs.Delete(ctx, docID)
	})

	results, err := index.Query(ctx, domain.AreaIT, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Equal scores keep insertion order
	assert.Equal(t, "VPN required.", results[0].Chunk.Content)
	assert.Equal(t, "Same direction.", results[1].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	assert.ErrorIs(t, docs.Save(ctx, &domain.Document{ID: docID, Filename: "it.md", Area: domain.AreaIT, CreatedAt: time.Now()}), domain.ErrAlreadyExists)

	zero, err := index.Query(ctx, domain.AreaIT, []float32{0, 0, 0}, 3)
	require.NoError(t, err)
	for _, sc := range zero {
		assert.False(t, math.IsNaN(sc.Score), "a zero query vector scores 0, not NaN")
	}

	_, err = index.Query(ctx, domain.AreaIT, []float32{1, 0, 0, 0, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	removed, err := index.DeleteByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
}

func TestHistoryStore_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	store := NewHistoryStore(db)
	userID := uuid.New().String()

	withDebate := &domain.QueryRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		Question:   "remote work?",
		Answer:     "Use the VPN.",
		PolicyArea: domain.AreaIT,
		Sources:    []string{"it.md"},
		Debate: domain.SomeDebateFlow(domain.DebateFlow{
			ITExpertResponse: "Use the VPN.",
			ITContext:        []string{"VPN required."},
		}),
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	}
	without := &domain.QueryRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		Question:   "legacy",
		Answer:     "answer",
		PolicyArea: domain.AreaGeneral,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, withDebate))
	require.NoError(t, store.Save(ctx, without))
	assert.ErrorIs(t, store.Save(ctx, without), domain.ErrAlreadyExists)

	records, err := store.ListByUser(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, without.ID, records[0].ID)
	assert.False(t, records[0].Debate.Present())
	assert.Equal(t, []string{}, records[0].Sources)

	flow, ok := records[1].Debate.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"VPN required."}, flow.ITContext)
	assert.Equal(t, []string{}, flow.HRContext)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdvisoryLock_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	a := NewAdvisoryLock(db)
	b := NewAdvisoryLock(db)
	name := "document:" + uuid.New().String()

	ok, err := a.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx, name))

	ok, err = b.Acquire(ctx, name, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx, name))
}
