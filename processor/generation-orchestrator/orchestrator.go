// Package generationorchestrator sequences requirement extraction and test
// case generation into a single all-or-nothing run with progress reporting.
package generationorchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"
	"github.com/google/uuid"
)

// RequirementExtractor turns document text into requirements.
type RequirementExtractor interface {
	Extract(ctx context.Context, text string) ([]workflow.Requirement, error)
}

// TestCaseGenerator produces test cases linked to requirements.
type TestCaseGenerator interface {
	Generate(ctx context.Context, text string, source workflow.Source, reqs []workflow.Requirement) ([]workflow.TestCase, error)
}

// Input is one generation request.
type Input struct {
	Text   string          `json:"text"`
	Source workflow.Source `json:"source"`
}

// Result is everything a successful run produced. Nothing is stored by the
// orchestrator; the caller commits the result in one step.
type Result struct {
	RunID        string                 `json:"runId"`
	Requirements []workflow.Requirement `json:"requirements"`
	TestCases    []workflow.TestCase    `json:"testCases"`
	Traceability *workflow.Traceability `json:"traceability"`
	Progress     workflow.Progress      `json:"progress"`
}

// Orchestrator runs the generation pipeline.
type Orchestrator struct {
	extractor RequirementExtractor
	generator TestCaseGenerator
	logger    *slog.Logger
	pacing    time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithPacing inserts a delay before each step so interactive callers can
// show progress. Zero, the default, disables it.
func WithPacing(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pacing = d
	}
}

// New creates an orchestrator.
func New(extractor RequirementExtractor, generator TestCaseGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor: extractor,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run tracks progress for one Run call.
type run struct {
	id         string
	onProgress func(workflow.Progress)
	current    workflow.Progress
}

func (r *run) emit(step, progress int, state workflow.ProgressState) {
	r.current = workflow.Progress{
		Step:     step,
		Message:  workflow.StepMessages[step],
		Progress: progress,
		State:    state,
	}
	if r.onProgress != nil {
		r.onProgress(r.current)
	}
}

// fail emits the terminal error record, keeping the step and progress
// reached so far.
func (r *run) fail(err error) {
	r.current.Message = err.Error()
	r.current.State = workflow.StateError
	if r.onProgress != nil {
		r.onProgress(r.current)
	}
}

// Run extracts requirements from in.Text, tags them with in.Source and
// generates test cases for them. onProgress, which may be nil, receives a
// non-decreasing sequence of progress records ending in a Complete or
// Error record. On error nothing is returned for the caller to commit and
// the error is returned as produced by the failing step.
func (o *Orchestrator) Run(ctx context.Context, in Input, onProgress func(workflow.Progress)) (*Result, error) {
	r := &run{id: uuid.New().String(), onProgress: onProgress}
	start := time.Now()

	result, err := o.run(ctx, r, in)
	runDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		runsTotal.WithLabelValues(string(workflow.StateError)).Inc()
		r.fail(err)
		o.logger.Warn("Generation run failed",
			"run_id", r.id,
			"step", r.current.Step,
			"error", err)
		return nil, err
	}

	runsTotal.WithLabelValues(string(workflow.StateComplete)).Inc()
	testCasesProduced.Add(float64(len(result.TestCases)))
	o.logger.Info("Generation run complete",
		"run_id", r.id,
		"requirements", len(result.Requirements),
		"test_cases", len(result.TestCases),
		"coverage_rate", result.Traceability.Summary.CoverageRate,
		"duration", time.Since(start))
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, r *run, in Input) (*Result, error) {
	r.emit(workflow.StepAnalyzing, 0, workflow.StateRunning)
	if strings.TrimSpace(in.Text) == "" {
		return nil, workflow.ErrEmptyInput
	}
	if !in.Source.IsValid() {
		return nil, fmt.Errorf("invalid source %q", in.Source)
	}
	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	r.emit(workflow.StepAnalyzing, 10, workflow.StateRunning)

	r.emit(workflow.StepExtracting, 20, workflow.StateRunning)
	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	extracted, err := o.extractor.Extract(ctx, in.Text)
	if err != nil {
		return nil, err
	}
	reqs := make([]workflow.Requirement, len(extracted))
	for i, req := range extracted {
		req.Source = in.Source
		reqs[i] = req
	}
	r.emit(workflow.StepExtracting, 40, workflow.StateRunning)

	r.emit(workflow.StepGenerating, 40, workflow.StateRunning)
	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	cases, err := o.generator.Generate(ctx, in.Text, in.Source, reqs)
	if err != nil {
		return nil, err
	}
	r.emit(workflow.StepGenerating, 70, workflow.StateRunning)

	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	trace := workflow.BuildTraceability(reqs, cases)
	r.emit(workflow.StepTraceability, 90, workflow.StateRunning)

	if err := o.pace(ctx); err != nil {
		return nil, err
	}
	r.emit(workflow.StepReporting, 100, workflow.StateComplete)

	return &Result{
		RunID:        r.id,
		Requirements: reqs,
		TestCases:    cases,
		Traceability: trace,
		Progress:     r.current,
	}, nil
}

// pace waits for the pacing delay. A cancelled context while waiting is a
// service failure like any other caller timeout.
func (o *Orchestrator) pace(ctx context.Context) error {
	if o.pacing <= 0 {
		return nil
	}
	timer := time.NewTimer(o.pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &llm.ServiceError{Intent: "generation-pacing", Err: ctx.Err()}
	}
}
