package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.HistoryStore = (*HistoryStore)(nil)

const queryColumns = `id, user_id, question, answer, policy_area, sources,
	has_debate, it_expert_response, hr_expert_response, it_context, hr_context, created_at`

// HistoryStore implements driven.HistoryStore using PostgreSQL.
// The debate flow columns are NULL when has_debate is false.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new HistoryStore
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Save inserts a record. Records are never updated.
func (s *HistoryStore) Save(ctx context.Context, record *domain.QueryRecord) error {
	sources, err := encodeStrings(record.Sources)
	if err != nil {
		return err
	}

	var itResponse, hrResponse, itContext, hrContext sql.NullString
	flow, hasDebate := record.Debate.Get()
	if hasDebate {
		itResponse = sql.NullString{String: flow.ITExpertResponse, Valid: true}
		hrResponse = sql.NullString{String: flow.HRExpertResponse, Valid: true}
		if itContext, err = encodeNullStrings(flow.ITContext); err != nil {
			return err
		}
		if hrContext, err = encodeNullStrings(flow.HRContext); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO queries (` + queryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Question,
		record.Answer,
		string(record.PolicyArea),
		sources,
		hasDebate,
		itResponse,
		hrResponse,
		itContext,
		hrContext,
		record.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a record by ID
func (s *HistoryStore) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	query := `SELECT ` + queryColumns + ` FROM queries WHERE id = $1`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByUser retrieves a user's records, most recent first
func (s *HistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.QueryRecord, error) {
	query := `
		SELECT ` + queryColumns + `
		FROM queries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.QueryRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func scanRecord(row rowScanner) (*domain.QueryRecord, error) {
	var record domain.QueryRecord
	var area string
	var sources []byte
	var hasDebate bool
	var itResponse, hrResponse sql.NullString
	var itContext, hrContext []byte

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Question,
		&record.Answer,
		&area,
		&sources,
		&hasDebate,
		&itResponse,
		&hrResponse,
		&itContext,
		&hrContext,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.PolicyArea = domain.TopicArea(area)
	if record.Sources, err = decodeStrings(sources); err != nil {
		return nil, fmt.Errorf("query %s sources: %w", record.ID, err)
	}

	record.Debate = domain.NoDebateFlow()
	if hasDebate {
		flow := domain.DebateFlow{
			ITExpertResponse: itResponse.String,
			HRExpertResponse: hrResponse.String,
		}
		if flow.ITContext, err = decodeStrings(itContext); err != nil {
			return nil, fmt.Errorf("query %s it context: %w", record.ID, err)
		}
		if flow.HRContext, err = decodeStrings(hrContext); err != nil {
			return nil, fmt.Errorf("query %s hr context: %w", record.ID, err)
		}
		record.Debate = domain.SomeDebateFlow(flow)
	}

	return &record, nil
}

// encodeStrings renders a list as a JSON array, never null
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeNullStrings(values []string) (sql.NullString, error) {
	s, err := encodeStrings(values)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

// decodeStrings parses a JSON array. NULL decodes to an empty list.
func decodeStrings(data []byte) ([]string, error) {
	values := []string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}
