package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

const documentColumns = `id, filename, policy_area, content, chunk_count, embedding_model, created_at`

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save inserts a document. Documents are never updated in place.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		string(doc.Area),
		doc.Text,
		doc.ChunkCount,
		doc.EmbeddingModel,
		doc.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List retrieves documents, newest first, optionally restricted to one area
func (s *DocumentStore) List(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE ($1 = '' OR policy_area = $1)
		ORDER BY created_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query, string(filter.Area))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// Delete deletes a document row. Its chunks are removed through the VectorIndex.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return execOne(ctx, s.db, `DELETE FROM documents WHERE id = $1`, id)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var area string
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&area,
		&doc.Text,
		&doc.ChunkCount,
		&doc.EmbeddingModel,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Area = domain.TopicArea(area)
	return &doc, nil
}
