package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// Query defaults
const (
	DefaultQueryTimeout = 60 * time.Second
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// QueryConfig configures the query service
type QueryConfig struct {
	// Timeout bounds one pipeline invocation
	Timeout time.Duration

	Logger *slog.Logger
}

// queryService implements the QueryService interface
type queryService struct {
	orchestrator *Orchestrator
	history      driven.HistoryStore
	timeout      time.Duration
	logger       *slog.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(orchestrator *Orchestrator, history driven.HistoryStore, config QueryConfig) driving.QueryService {
	if config.Timeout <= 0 {
		config.Timeout = DefaultQueryTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &queryService{
		orchestrator: orchestrator,
		history:      history,
		timeout:      config.Timeout,
		logger:       config.Logger,
	}
}

// Ask answers a question and records it in the user's history. A history
// failure does not discard the answer; it is reported in Answer.HistoryErr.
func (s *queryService) Ask(ctx context.Context, userID, question string) (*driving.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	queryID := uuid.New().String()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.orchestrator.Answer(runCtx, queryID, question)
	if err != nil {
		return nil, err
	}
	result.PolicyArea = domain.AttributePolicyArea(len(result.ITContext), len(result.HRContext))

	answer := &driving.Answer{Result: result}

	record := result.ToRecord(userID)
	record.CreatedAt = time.Now().UTC()
	if err := s.history.Save(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Error("failed to persist query", "query_id", queryID, "user_id", userID, "error", err)
		answer.HistoryErr = &domain.HistoryError{QueryID: queryID, Err: err}
	}
	return answer, nil
}

// History lists a user's past queries, most recent first
func (s *queryService) History(ctx context.Context, userID string, limit int) ([]*domain.QueryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.history.ListByUser(ctx, userID, limit)
}

// GetRecord retrieves a record owned by the user. Records of other users
// are reported as not found.
func (s *queryService) GetRecord(ctx context.Context, userID, id string) (*domain.QueryRecord, error) {
	record, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

