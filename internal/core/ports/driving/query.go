package driving

import (
	"context"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// Answer is the outcome of one question. HistoryErr is set when the answer
// was produced but could not be persisted.
type Answer struct {
	Result     *domain.PipelineResult
	HistoryErr error
}

// QueryService answers policy questions and serves per-user history
type QueryService interface {
	// Ask runs the retrieval and debate pipeline for a user's question
	Ask(ctx context.Context, userID, question string) (*Answer, error)

	// History lists a user's past queries, most recent first
	History(ctx context.Context, userID string, limit int) ([]*domain.QueryRecord, error)

	// GetRecord retrieves one of the user's past queries
	GetRecord(ctx context.Context, userID, id string) (*domain.QueryRecord, error)
}
