package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUnsupportedFormat indicates an upload format with no text extractor
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyDocument indicates the extracted text produced no chunks
	ErrEmptyDocument = errors.New("document has no text")

	// ErrInvalidTopicArea indicates an area outside IT, HR, General
	ErrInvalidTopicArea = errors.New("invalid topic area")

	// ErrLockTimeout indicates a document lock could not be acquired in time
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrDimensionMismatch indicates a vector of the wrong length for the index
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingModelMismatch indicates indexed documents were embedded by a
	// model other than the configured one
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
)

// IngestionError reports a document that could not be ingested.
// Nothing is persisted when it is returned.
type IngestionError struct {
	DocumentID string
	Filename   string
	Err        error
}

func (e *IngestionError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("ingest %s: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("ingest document %s: %v", e.DocumentID, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// EmbeddingError reports a failure of the embedding backend
type EmbeddingError struct {
	Op        string // "embed" or "embed_query"
	retriable bool
	Err       error
}

// NewEmbeddingError wraps a backend failure
func NewEmbeddingError(op string, retriable bool, err error) *EmbeddingError {
	return &EmbeddingError{Op: op, retriable: retriable, Err: err}
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s failed: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Retriable reports whether the caller may retry the whole operation
func (e *EmbeddingError) Retriable() bool { return e.retriable }

// GenerationError reports a failure of a text-generation backend
type GenerationError struct {
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation backend %s: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PipelineError reports the stage (and area, when one applies) at which a
// query failed. No partial answer accompanies it.
type PipelineError struct {
	QueryID string
	Stage   PipelineStage
	Area    TopicArea
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Area != "" {
		return fmt.Sprintf("query %s failed in %s (%s): %v", e.QueryID, e.Stage, e.Area, e.Err)
	}
	return fmt.Sprintf("query %s failed in %s: %v", e.QueryID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// HistoryError reports that an answer was produced but not persisted
type HistoryError struct {
	QueryID string
	Err     error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("persist query %s: %v", e.QueryID, e.Err)
}

func (e *HistoryError) Unwrap() error { return e.Err }

// IsRetriable reports whether err, or anything it wraps, is marked retriable
func IsRetriable(err error) bool {
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Retriable()
	}
	return false
}
