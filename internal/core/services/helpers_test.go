package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/policypal/internal/adapters/driven/memory"
	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
	"github.com/custodia-labs/policypal/internal/runtime"
)

// createTestServices creates runtime services for testing
func createTestServices(embedding driven.EmbeddingService, generation driven.GenerationBackend) *runtime.Services {
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	if embedding != nil {
		services.SetEmbeddingService(embedding)
	}
	if generation != nil {
		services.SetGenerationBackend(generation, false)
	}
	return services
}

// addChunk stores one chunk with an explicit embedding
func addChunk(index driven.VectorIndex, area domain.TopicArea, docID, filename, content string, embedding []float32) {
	_ = index.Add(context.Background(), area, []*domain.Chunk{{
		ID:         domain.ChunkID(docID, 0),
		DocumentID: docID,
		Filename:   filename,
		Area:       area,
		Content:    content,
		Embedding:  embedding,
	}})
}

// failingDocumentStore fails every Save
type failingDocumentStore struct {
	*memory.DocumentStore
	err error
}

func (s *failingDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	return s.err
}

// failingHistoryStore fails every Save
type failingHistoryStore struct {
	*memory.HistoryStore
}

func (s *failingHistoryStore) Save(ctx context.Context, record *domain.QueryRecord) error {
	return errors.New("history database unavailable")
}
