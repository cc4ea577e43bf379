package driving

import (
	"context"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// IngestRequest carries already-extracted document text
type IngestRequest struct {
	DocumentID string           `json:"document_id,omitempty"` // Generated when empty
	Filename   string           `json:"filename"`
	Area       domain.TopicArea `json:"policy_area"`
	Text       string           `json:"text"`
}

// IngestFileRequest carries an uploaded file whose text is extracted by
// the service
type IngestFileRequest struct {
	DocumentID string
	Filename   string
	Area       domain.TopicArea
	Data       []byte
}

// IngestionService owns the document write path: chunk, embed, index
type IngestionService interface {
	// Ingest chunks, embeds and indexes a document under its area
	Ingest(ctx context.Context, req IngestRequest) (*domain.Document, error)

	// IngestFile extracts the text of an uploaded file and ingests it
	IngestFile(ctx context.Context, req IngestFileRequest) (*domain.Document, error)

	// Delete removes a document and all of its chunks
	Delete(ctx context.Context, id string) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves documents, newest first, optionally for one area
	List(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error)

	// VerifyEmbeddingModel returns domain.ErrEmbeddingModelMismatch when a
	// stored document was embedded by another model than the shared
	// embedding service
	VerifyEmbeddingModel(ctx context.Context) error
}
