package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// OrchestratorConfig configures the question pipeline
type OrchestratorConfig struct {
	Logger *slog.Logger

	// OnTransition is called after every stage transition of a query
	OnTransition func(queryID string, from, to domain.PipelineStage)
}

// Orchestrator runs the fixed two-expert pipeline: both retrievals in
// parallel, then both analyses in parallel, then the synthesis.
type Orchestrator struct {
	retriever   *Retriever
	itExpert    *Expert
	hrExpert    *Expert
	coordinator *Coordinator
	logger      *slog.Logger
	hook        func(queryID string, from, to domain.PipelineStage)
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(retriever *Retriever, itExpert, hrExpert *Expert, coordinator *Coordinator, config OrchestratorConfig) *Orchestrator {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Orchestrator{
		retriever:   retriever,
		itExpert:    itExpert,
		hrExpert:    hrExpert,
		coordinator: coordinator,
		logger:      config.Logger,
		hook:        config.OnTransition,
	}
}

// Answer runs one invocation. On failure the returned *domain.PipelineError
// names the stage (and area) that failed and no partial result is returned.
func (o *Orchestrator) Answer(ctx context.Context, queryID, question string) (*domain.PipelineResult, error) {
	run := o.start(queryID)

	// Retrieval
	if err := run.enter(ctx, domain.StageRetrieving); err != nil {
		return nil, err
	}
	var it, hr domain.Retrieval
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := o.retriever.Retrieve(gctx, question, domain.AreaIT)
		if err != nil {
			return run.failure(domain.AreaIT, err)
		}
		it = r
		return nil
	})
	g.Go(func() error {
		r, err := o.retriever.Retrieve(gctx, question, domain.AreaHR)
		if err != nil {
			return run.failure(domain.AreaHR, err)
		}
		hr = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, run.fail(err)
	}

	// Analysis
	if err := run.enter(ctx, domain.StageAnalyzing); err != nil {
		return nil, err
	}
	var itAnalysis, hrAnalysis domain.Analysis
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := o.itExpert.Analyze(gctx, question, it.Snippets)
		if err != nil {
			return run.failure(domain.AreaIT, err)
		}
		itAnalysis = a
		return nil
	})
	g.Go(func() error {
		a, err := o.hrExpert.Analyze(gctx, question, hr.Snippets)
		if err != nil {
			return run.failure(domain.AreaHR, err)
		}
		hrAnalysis = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, run.fail(err)
	}

	// Synthesis
	if err := run.enter(ctx, domain.StageSynthesizing); err != nil {
		return nil, err
	}
	answer, err := o.coordinator.Synthesize(ctx, question, itAnalysis, hrAnalysis)
	if err != nil {
		return nil, run.fail(run.failure("", err))
	}

	result := &domain.PipelineResult{
		QueryID:          queryID,
		Question:         question,
		Answer:           answer,
		ITExpertResponse: itAnalysis.Text,
		HRExpertResponse: hrAnalysis.Text,
		ITContext:        it.Snippets,
		HRContext:        hr.Snippets,
		Sources:          unionSources(it.Sources, hr.Sources),
	}
	run.transition(domain.StageComplete)
	return result, nil
}

// unionSources merges filenames in first-seen order
func unionSources(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// pipelineRun tracks the state of one invocation
type pipelineRun struct {
	o          *Orchestrator
	queryID    string
	stage      domain.PipelineStage
	started    time.Time
	stageStart time.Time
}

func (o *Orchestrator) start(queryID string) *pipelineRun {
	now := time.Now()
	run := &pipelineRun{o: o, queryID: queryID, stage: domain.StageReceived, started: now, stageStart: now}
	o.logger.Info("query received", "query_id", queryID, "stage", domain.StageReceived)
	if o.hook != nil {
		o.hook(queryID, "", domain.StageReceived)
	}
	return run
}

// enter moves to the next stage unless the context is already done, in
// which case the remaining stages are skipped and the run fails
func (r *pipelineRun) enter(ctx context.Context, next domain.PipelineStage) error {
	if err := ctx.Err(); err != nil {
		return r.fail(&domain.PipelineError{QueryID: r.queryID, Stage: next, Err: err})
	}
	r.transition(next)
	return nil
}

func (r *pipelineRun) transition(next domain.PipelineStage) {
	from := r.stage
	if !from.CanTransition(next) {
		r.o.logger.Error("invalid pipeline transition", "query_id", r.queryID, "from", from, "to", next)
		return
	}
	now := time.Now()
	r.stage = next
	r.o.logger.Info("pipeline stage",
		"query_id", r.queryID,
		"from", from,
		"stage", next,
		"stage_ms", now.Sub(r.stageStart).Milliseconds(),
		"elapsed_ms", now.Sub(r.started).Milliseconds())
	r.stageStart = now
	if r.o.hook != nil {
		r.o.hook(r.queryID, from, next)
	}
}

// failure attributes err to the current stage and the given area
func (r *pipelineRun) failure(area domain.TopicArea, err error) error {
	return &domain.PipelineError{QueryID: r.queryID, Stage: r.stage, Area: area, Err: err}
}

// fail moves the run to FAILED and returns err
func (r *pipelineRun) fail(err error) error {
	r.o.logger.Warn("query failed", "query_id", r.queryID, "stage", r.stage, "error", err)
	r.transition(domain.StageFailed)
	return err
}
