// Package testcasegenerator produces structured test cases linked to a
// supplied list of requirements.
package testcasegenerator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"
	"github.com/c360studio/casegen/workflow/prompts"
)

// generatedTestCase is a test case as the backend returns it. The creation
// date is never read from the backend.
type generatedTestCase struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	RequirementID   string            `json:"requirementId"`
	Tags            []string          `json:"tags"`
	Priority        workflow.Priority `json:"priority"`
	Compliance      []string          `json:"compliance"`
	Steps           []string          `json:"steps"`
	ExpectedOutcome string            `json:"expectedOutcome"`
}

// Result is the outcome of one generation call.
type Result struct {
	TestCases []workflow.TestCase `json:"testCases"`
	// Orphans lists returned cases naming an unknown requirement. It is
	// only populated under PolicyFlag; under PolicyReject orphans fail the
	// call instead.
	Orphans []workflow.TestCase `json:"orphans,omitempty"`
}

// Generator calls the completion gateway to produce test cases.
type Generator struct {
	gateway llm.StructuredCompleter
	config  Config
	logger  *slog.Logger
	now     func() time.Time

	// Metrics
	testCasesGenerated atomic.Int64
	orphansDetected    atomic.Int64
	generationsFailed  atomic.Int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(g *Generator) {
		g.config = cfg
	}
}

// WithPolicy sets the orphan policy.
func WithPolicy(p Policy) Option {
	return func(g *Generator) {
		g.config.Policy = p
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a generator over gateway.
func New(gateway llm.StructuredCompleter, opts ...Option) *Generator {
	g := &Generator{
		gateway: gateway,
		config:  DefaultConfig(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns test cases for reqs drawn from text. Every returned case
// is Draft, carries source and has a local creation time. Under the default
// reject policy every case references one of reqs.
func (g *Generator) Generate(ctx context.Context, text string, source workflow.Source, reqs []workflow.Requirement) ([]workflow.TestCase, error) {
	result, err := g.GenerateResult(ctx, text, source, reqs)
	if err != nil {
		return nil, err
	}
	return result.TestCases, nil
}

// GenerateResult is Generate with orphan reporting for PolicyFlag.
func (g *Generator) GenerateResult(ctx context.Context, text string, source workflow.Source, reqs []workflow.Requirement) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, workflow.ErrEmptyInput
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid source %q", source)
	}

	variant := workflow.VariantForSource(source)
	req := prompts.GenerateTestCases(text, source, reqs, variant)

	var generated []generatedTestCase
	if err := llm.CompleteInto(ctx, g.gateway, req.Instruction, req.Shape, &generated, g.config.Options(req.Intent)...); err != nil {
		g.generationsFailed.Add(1)
		return nil, err
	}

	created := g.now().UTC()
	cases := make([]workflow.TestCase, 0, len(generated))
	for _, gen := range generated {
		cases = append(cases, toTestCase(gen, source, created))
	}

	result := &Result{TestCases: cases}
	if err := g.checkTraceability(reqs, result); err != nil {
		g.generationsFailed.Add(1)
		return nil, err
	}
	g.warnMalformedSteps(cases)

	g.testCasesGenerated.Add(int64(len(result.TestCases)))
	g.logger.Info("Test cases generated",
		"source", string(source),
		"variant", variant.String(),
		"requirements", len(reqs),
		"test_cases", len(result.TestCases),
		"orphans", len(result.Orphans))
	return result, nil
}

func toTestCase(gen generatedTestCase, source workflow.Source, created time.Time) workflow.TestCase {
	compliance := gen.Compliance
	if compliance == nil {
		compliance = []string{}
	}
	return workflow.TestCase{
		ID:              gen.ID,
		Title:           gen.Title,
		Description:     gen.Description,
		RequirementID:   gen.RequirementID,
		Tags:            gen.Tags,
		Priority:        gen.Priority,
		Status:          workflow.StatusDraft,
		Source:          source,
		Compliance:      compliance,
		Steps:           gen.Steps,
		ExpectedOutcome: gen.ExpectedOutcome,
		DateCreated:     created,
	}
}

// checkTraceability applies the orphan policy to result.
func (g *Generator) checkTraceability(reqs []workflow.Requirement, result *Result) error {
	orphans := workflow.FindOrphans(reqs, result.TestCases)
	if len(orphans) == 0 {
		return nil
	}
	g.orphansDetected.Add(int64(len(orphans)))

	if g.config.Policy == PolicyFlag {
		result.Orphans = orphans
		for _, tc := range orphans {
			g.logger.Warn("Generated test case references unknown requirement",
				"test_case_id", tc.ID,
				"requirement_id", tc.RequirementID)
		}
		return nil
	}

	terr := &workflow.TraceabilityError{Orphans: make(map[string]string, len(orphans))}
	for _, tc := range orphans {
		terr.Orphans[tc.ID] = tc.RequirementID
		terr.OrphanIDs = append(terr.OrphanIDs, tc.ID)
	}
	return terr
}

// warnMalformedSteps logs steps without a Given/When/Then keyword. Step
// format is advisory and never fails generation.
func (g *Generator) warnMalformedSteps(cases []workflow.TestCase) {
	for _, tc := range cases {
		if bad := workflow.StepKeywordsValid(tc.Steps); len(bad) > 0 {
			g.logger.Warn("Test case steps lack a Given/When/Then keyword",
				"test_case_id", tc.ID,
				"step_indexes", bad)
		}
	}
}

// Stats reports generator counters.
type Stats struct {
	TestCasesGenerated int64 `json:"test_cases_generated"`
	OrphansDetected    int64 `json:"orphans_detected"`
	GenerationsFailed  int64 `json:"generations_failed"`
}

// Stats returns a snapshot of the generator counters.
func (g *Generator) Stats() Stats {
	return Stats{
		TestCasesGenerated: g.testCasesGenerated.Load(),
		OrphansDetected:    g.orphansDetected.Load(),
		GenerationsFailed:  g.generationsFailed.Load(),
	}
}
