package driven

import (
	"context"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// HistoryStore persists answered queries per user
type HistoryStore interface {
	// Save stores a record. Records are immutable once saved.
	Save(ctx context.Context, record *domain.QueryRecord) error

	// Get retrieves a record by ID
	Get(ctx context.Context, id string) (*domain.QueryRecord, error)

	// ListByUser retrieves a user's records, most recent first.
	// A limit of zero or less returns all of them.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.QueryRecord, error)
}
