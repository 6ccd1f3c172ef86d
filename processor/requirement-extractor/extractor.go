// Package requirementextractor turns requirement documents and API
// specifications into discrete Requirement records.
package requirementextractor

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"
	"github.com/c360studio/casegen/workflow/prompts"
)

// Extractor calls the completion gateway to extract requirements.
type Extractor struct {
	gateway llm.StructuredCompleter
	config  Config
	logger  *slog.Logger

	// Metrics
	documentsProcessed    atomic.Int64
	requirementsExtracted atomic.Int64
	extractionsFailed     atomic.Int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extractor) {
		e.config = cfg
	}
}

// New creates an extractor over gateway.
func New(gateway llm.StructuredCompleter, opts ...Option) *Extractor {
	e := &Extractor{
		gateway: gateway,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the requirements found in text. The prompt variant is
// chosen by classifying the text. Returned requirements have no Source;
// the caller records how the text entered the system. Ids are unique only
// within one call.
func (e *Extractor) Extract(ctx context.Context, text string) ([]workflow.Requirement, error) {
	if strings.TrimSpace(text) == "" {
		return nil, workflow.ErrEmptyInput
	}
	e.documentsProcessed.Add(1)

	variant := workflow.ClassifyInput(text)
	req := prompts.ExtractRequirements(text, variant)

	var extracted []workflow.Requirement
	if err := llm.CompleteInto(ctx, e.gateway, req.Instruction, req.Shape, &extracted, e.config.Extraction.Options(req.Intent)...); err != nil {
		e.extractionsFailed.Add(1)
		return nil, err
	}

	reqs := make([]workflow.Requirement, 0, len(extracted))
	for _, r := range extracted {
		r.Source = ""
		reqs = append(reqs, r)
	}
	e.requirementsExtracted.Add(int64(len(reqs)))

	e.logger.Info("Requirements extracted",
		"variant", variant.String(),
		"count", len(reqs),
		"input_bytes", len(text))
	return reqs, nil
}

// Analyze returns a quick review of text: a summary, the applicable test
// categories and an estimate of how many test cases it supports.
func (e *Extractor) Analyze(ctx context.Context, text string) (*workflow.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, workflow.ErrEmptyInput
	}

	req := prompts.AnalyzeRequirements(text)
	var analysis workflow.Analysis
	if err := llm.CompleteInto(ctx, e.gateway, req.Instruction, req.Shape, &analysis, e.config.Analysis.Options(req.Intent)...); err != nil {
		return nil, err
	}
	if analysis.TestCaseCategories == nil {
		analysis.TestCaseCategories = []string{}
	}
	return &analysis, nil
}

// Stats reports extractor counters.
type Stats struct {
	DocumentsProcessed    int64 `json:"documents_processed"`
	RequirementsExtracted int64 `json:"requirements_extracted"`
	ExtractionsFailed     int64 `json:"extractions_failed"`
}

// Stats returns a snapshot of the extractor counters.
func (e *Extractor) Stats() Stats {
	return Stats{
		DocumentsProcessed:    e.documentsProcessed.Load(),
		RequirementsExtracted: e.requirementsExtracted.Load(),
		ExtractionsFailed:     e.extractionsFailed.Load(),
	}
}
