package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex stores chunks in a pgvector column and ranks them by cosine
// distance. The seq column breaks ties in insertion order.
type VectorIndex struct {
	db *DB
}

// NewVectorIndex creates a new VectorIndex
func NewVectorIndex(db *DB) *VectorIndex {
	return &VectorIndex{db: db}
}

// Add inserts every chunk in one transaction
func (v *VectorIndex) Add(ctx context.Context, area domain.TopicArea, chunks []*domain.Chunk) error {
	if !area.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTopicArea, area)
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := checkDimensions(chunks); err != nil {
		return err
	}

	query := `
		INSERT INTO chunks (id, document_id, filename, policy_area, position, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return v.db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare chunk insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			_, err := stmt.ExecContext(ctx,
				c.ID,
				c.DocumentID,
				c.Filename,
				string(area),
				c.Position,
				c.Content,
				pgvector.NewVector(c.Embedding),
			)
			if isUniqueViolation(err) {
				return fmt.Errorf("chunk %s: %w", c.ID, domain.ErrAlreadyExists)
			}
			if err != nil {
				return fmt.Errorf("insert chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// Query returns the k nearest chunks of an area with score = 1 - cosine distance
func (v *VectorIndex) Query(ctx context.Context, area domain.TopicArea, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	if !area.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTopicArea, area)
	}
	results := []domain.ScoredChunk{}
	if k <= 0 || len(embedding) == 0 {
		return results, nil
	}

	query := `
		SELECT id, document_id, filename, position, content, 1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE policy_area = $2
		ORDER BY embedding <=> $1, seq
		LIMIT $3
	`

	rows, err := v.db.QueryContext(ctx, query, pgvector.NewVector(embedding), string(area), k)
	if isDataException(err) {
		// pgvector refuses to compare vectors of different sizes
		return nil, fmt.Errorf("%w: %v", domain.ErrDimensionMismatch, err)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		chunk := &domain.Chunk{Area: area}
		var score float64
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Filename, &chunk.Position, &chunk.Content, &score); err != nil {
			return nil, err
		}
		if math.IsNaN(score) {
			// Cosine distance to a zero vector is undefined
			score = 0
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteByDocument removes a document's chunks in a single statement
func (v *VectorIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	result, err := v.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// Count returns the number of chunks of an area
func (v *VectorIndex) Count(ctx context.Context, area domain.TopicArea) (int, error) {
	var count int
	err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE policy_area = $1`, string(area)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// checkDimensions rejects empty and mixed-size embeddings before any row is written
func checkDimensions(chunks []*domain.Chunk) error {
	dims := len(chunks[0].Embedding)
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: %w: empty embedding", c.ID, domain.ErrInvalidInput)
		}
		if len(c.Embedding) != dims {
			return fmt.Errorf("chunk %s: %w: got %d, want %d", c.ID, domain.ErrDimensionMismatch, len(c.Embedding), dims)
		}
	}
	return nil
}
