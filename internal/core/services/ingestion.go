package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
	"github.com/custodia-labs/policypal/internal/runtime"
)

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

// Lock defaults
const (
	DefaultLockTTL   = 2 * time.Minute
	DefaultLockWait  = 30 * time.Second
	DefaultLockRetry = 50 * time.Millisecond
)

// IngestionConfig configures the document write path
type IngestionConfig struct {
	// LockTTL bounds how long a document lock survives a crashed holder
	LockTTL time.Duration

	// LockWait bounds lock acquisition when the context has no deadline
	LockWait time.Duration

	// LockRetry is the delay between acquisition attempts
	LockRetry time.Duration

	Logger *slog.Logger
}

// ingestionService implements the IngestionService interface
type ingestionService struct {
	documents driven.DocumentStore
	index     driven.VectorIndex
	lock      driven.DistributedLock
	extractor driven.TextExtractor
	pipeline  driven.PostProcessorPipeline
	services  *runtime.Services // Shared embedding service
	config    IngestionConfig
	logger    *slog.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(
	documents driven.DocumentStore,
	index driven.VectorIndex,
	lock driven.DistributedLock,
	extractor driven.TextExtractor,
	pipeline driven.PostProcessorPipeline,
	services *runtime.Services,
	config IngestionConfig,
) driving.IngestionService {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}
	if config.LockWait <= 0 {
		config.LockWait = DefaultLockWait
	}
	if config.LockRetry <= 0 {
		config.LockRetry = DefaultLockRetry
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &ingestionService{
		documents: documents,
		index:     index,
		lock:      lock,
		extractor: extractor,
		pipeline:  pipeline,
		services:  services,
		config:    config,
		logger:    config.Logger,
	}
}

// Ingest chunks, embeds and indexes a document. Nothing is persisted when an
// error is returned.
func (s *ingestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.Document, error) {
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	req.Filename = strings.TrimSpace(req.Filename)

	if req.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if !req.Area.IsValid() {
		return nil, fmt.Errorf("%w: %q (must be one of IT, HR, General)", domain.ErrInvalidTopicArea, req.Area)
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.New().String()
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}

	var doc *domain.Document
	err := s.withDocumentLock(ctx, req.DocumentID, func() error {
		var err error
		doc, err = s.ingestLocked(ctx, embedder, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document ingested",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"area", doc.Area,
		"chunks", doc.ChunkCount)
	return doc, nil
}

func (s *ingestionService) ingestLocked(ctx context.Context, embedder driven.EmbeddingService, req driving.IngestRequest) (*domain.Document, error) {
	if _, err := s.documents.Get(ctx, req.DocumentID); err == nil {
		return nil, fmt.Errorf("document %s: %w", req.DocumentID, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check document %s: %w", req.DocumentID, err)
	}

	segments := s.pipeline.Process(req.Text)
	if len(segments) == 0 {
		return nil, &domain.IngestionError{DocumentID: req.DocumentID, Filename: req.Filename, Err: domain.ErrEmptyDocument}
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Content
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks of %s: %w", req.Filename, err)
	}
	if len(vectors) != len(segments) {
		return nil, domain.NewEmbeddingError("embed", false,
			fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(segments)))
	}

	chunks := make([]*domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = &domain.Chunk{
			ID:         domain.ChunkID(req.DocumentID, seg.Position),
			DocumentID: req.DocumentID,
			Filename:   req.Filename,
			Area:       req.Area,
			Content:    seg.Content,
			Embedding:  vectors[i],
			Position:   seg.Position,
		}
	}

	if err := s.index.Add(ctx, req.Area, chunks); err != nil {
		return nil, fmt.Errorf("index chunks of %s: %w", req.Filename, err)
	}

	doc := &domain.Document{
		ID:             req.DocumentID,
		Filename:       req.Filename,
		Area:           req.Area,
		Text:           req.Text,
		ChunkCount:     len(chunks),
		EmbeddingModel: embedder.Model(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		if _, rbErr := s.index.DeleteByDocument(context.WithoutCancel(ctx), req.DocumentID); rbErr != nil {
			s.logger.Error("failed to roll back indexed chunks",
				"document_id", req.DocumentID,
				"error", rbErr)
		}
		return nil, fmt.Errorf("save document %s: %w", req.DocumentID, err)
	}
	return doc, nil
}

// IngestFile extracts the text of an upload and ingests it
func (s *ingestionService) IngestFile(ctx context.Context, req driving.IngestFileRequest) (*domain.Document, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: no text extractor configured", domain.ErrServiceUnavailable)
	}
	if len(req.Data) == 0 {
		return nil, &domain.IngestionError{DocumentID: req.DocumentID, Filename: req.Filename, Err: domain.ErrEmptyDocument}
	}

	text, err := s.extractor.Extract(req.Filename, req.Data)
	if err != nil {
		return nil, &domain.IngestionError{DocumentID: req.DocumentID, Filename: req.Filename, Err: err}
	}

	return s.Ingest(ctx, driving.IngestRequest{
		DocumentID: req.DocumentID,
		Filename:   req.Filename,
		Area:       req.Area,
		Text:       text,
	})
}

// Delete removes a document's chunks from every area, then the document
func (s *ingestionService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	var removed int
	err := s.withDocumentLock(ctx, id, func() error {
		if _, err := s.documents.Get(ctx, id); err != nil {
			return err
		}
		n, err := s.index.DeleteByDocument(ctx, id)
		if err != nil {
			return fmt.Errorf("delete chunks of %s: %w", id, err)
		}
		removed = n
		return s.documents.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted", "document_id", id, "chunks", removed)
	return nil
}

// Get retrieves a document by ID
func (s *ingestionService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.Get(ctx, id)
}

// List retrieves documents, newest first
func (s *ingestionService) List(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error) {
	if filter.Area != "" && !filter.Area.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTopicArea, filter.Area)
	}
	return s.documents.List(ctx, filter)
}

// VerifyEmbeddingModel checks that every stored document was embedded by the
// shared embedding service. Queries against vectors of another model are
// meaningless, so a mismatch must stop the process before it serves.
func (s *ingestionService) VerifyEmbeddingModel(ctx context.Context) error {
	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return fmt.Errorf("%w: no embedding service configured", domain.ErrServiceUnavailable)
	}
	configured := embedder.Model()

	docs, err := s.documents.List(ctx, domain.DocumentFilter{})
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	counts := make(map[string]int)
	for _, doc := range docs {
		if doc.EmbeddingModel != configured {
			counts[doc.EmbeddingModel]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	models := make([]string, 0, len(counts))
	for model, n := range counts {
		if model == "" {
			model = "unknown"
		}
		models = append(models, fmt.Sprintf("%s (%d documents)", model, n))
	}
	slices.Sort(models)
	return fmt.Errorf("%w: index holds %s, configured %s",
		domain.ErrEmbeddingModelMismatch, strings.Join(models, ", "), configured)
}

// withDocumentLock runs fn while holding "document:<id>". Acquisition is
// retried until the context is done, or LockWait passes when the context
// has no deadline.
func (s *ingestionService) withDocumentLock(ctx context.Context, id string, fn func() error) error {
	name := "document:" + id

	waitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.config.LockWait)
		defer cancel()
	}

	for {
		acquired, err := s.lock.Acquire(waitCtx, name, s.config.LockTTL)
		if err != nil {
			if waitCtx.Err() != nil {
				return fmt.Errorf("%w: %s", domain.ErrLockTimeout, name)
			}
			return fmt.Errorf("acquire %s: %w", name, err)
		}
		if acquired {
			break
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("%w: %s", domain.ErrLockTimeout, name)
		case <-time.After(s.config.LockRetry):
		}
	}

	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			s.logger.Warn("failed to release lock", "lock", name, "error", err)
		}
	}()
	return fn()
}
