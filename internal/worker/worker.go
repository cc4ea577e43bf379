// Package worker ingests batches of local policy files with a bounded pool
// of goroutines. It backs the "ingest" run mode.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

// Job is one file to ingest into one policy area
type Job struct {
	Path string
	Area domain.TopicArea
}

// Result is the outcome of a job. Exactly one of Document and Err is set.
type Result struct {
	Job      Job
	Document *domain.Document
	Err      error
	Duration time.Duration
}

// Summary aggregates a batch
type Summary struct {
	Results []Result // In job order
	Chunks  int
	Failed  int
}

// Worker feeds jobs to the ingestion service
type Worker struct {
	ingestion driving.IngestionService
	logger    *slog.Logger

	concurrency int
	readFile    func(name string) ([]byte, error)
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Ingestion   driving.IngestionService
	Logger      *slog.Logger
	Concurrency int // Number of files ingested at once
}

// NewWorker creates a new ingestion worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Worker{
		ingestion:   cfg.Ingestion,
		logger:      logger,
		concurrency: concurrency,
		readFile:    os.ReadFile,
	}
}

// Run ingests every job and waits for all of them. A failed job does not
// stop the others; jobs not yet started when ctx is cancelled fail with
// the context error.
func (w *Worker) Run(ctx context.Context, jobs []Job) Summary {
	results := make([]Result, len(jobs))

	w.logger.Info("ingest batch starting", "files", len(jobs), "concurrency", w.concurrency)

	indexes := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID, jobs, indexes, results)
		}(i)
	}

feed:
	for i := range jobs {
		select {
		case indexes <- i:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				results[j] = Result{Job: jobs[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	summary := Summary{Results: results}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			continue
		}
		summary.Chunks += r.Document.ChunkCount
	}

	w.logger.Info("ingest batch finished",
		"files", len(jobs),
		"failed", summary.Failed,
		"chunks", summary.Chunks,
	)
	return summary
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int, jobs []Job, indexes <-chan int, results []Result) {
	logger := w.logger.With("worker_id", workerID)

	for i := range indexes {
		results[i] = w.processJob(ctx, jobs[i], logger)
	}
}

// processJob ingests a single file.
func (w *Worker) processJob(ctx context.Context, job Job, logger *slog.Logger) Result {
	logger = logger.With("path", job.Path, "policy_area", job.Area)
	start := time.Now()

	doc, err := w.ingest(ctx, job)
	result := Result{Job: job, Document: doc, Err: err, Duration: time.Since(start)}

	if err != nil {
		logger.Error("ingest failed", "error", err, "duration", result.Duration)
		return result
	}
	logger.Info("ingested",
		"document_id", doc.ID,
		"chunks", doc.ChunkCount,
		"duration", result.Duration,
	)
	return result
}

func (w *Worker) ingest(ctx context.Context, job Job) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := w.readFile(job.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", job.Path, err)
	}

	return w.ingestion.IngestFile(ctx, driving.IngestFileRequest{
		Filename: filepath.Base(job.Path),
		Area:     job.Area,
		Data:     data,
	})
}
