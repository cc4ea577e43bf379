package driven

import (
	"context"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// DocumentStore handles document metadata persistence
type DocumentStore interface {
	// Save creates a document. Returns domain.ErrAlreadyExists for a known id.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves documents matching the filter, newest first
	List(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error)

	// Delete deletes a document. Returns domain.ErrNotFound for an unknown id.
	Delete(ctx context.Context, id string) error
}
