// Package suiteanalyzer runs AI operations over a whole test suite:
// duplicate detection, change impact analysis and bulk healing.
package suiteanalyzer

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/casegen/llm"
	testcaseassistant "github.com/c360studio/casegen/processor/testcase-assistant"
	"github.com/c360studio/casegen/workflow"
	"github.com/c360studio/casegen/workflow/prompts"
)

// Healer patches a single test case for a change.
type Healer interface {
	Heal(ctx context.Context, tc workflow.TestCase, change, rationale string) (workflow.TestCasePatch, error)
}

// Analyzer runs suite-level operations through the gateway.
type Analyzer struct {
	gateway llm.StructuredCompleter
	healer  Healer
	config  Config
	logger  *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) {
		a.config = cfg
	}
}

// WithHealer replaces the healer used by HealImpacted.
func WithHealer(h Healer) Option {
	return func(a *Analyzer) {
		a.healer = h
	}
}

// New creates an analyzer over gateway. Unless WithHealer is given,
// healing uses a test case assistant on the same gateway.
func New(gateway llm.StructuredCompleter, opts ...Option) *Analyzer {
	a := &Analyzer{
		gateway: gateway,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.healer == nil {
		a.healer = testcaseassistant.New(gateway, testcaseassistant.WithLogger(a.logger))
	}
	return a
}

type rawPair struct {
	TestCase1ID string  `json:"testCase1Id"`
	TestCase2ID string  `json:"testCase2Id"`
	Similarity  float64 `json:"similarity"`
	Rationale   string  `json:"rationale"`
}

// DetectDuplicates returns pairs of cases that verify substantially the
// same behavior. Pairs are normalized so the smaller id comes first, and
// pairs below the similarity threshold, self-pairs, repeats and pairs
// naming unknown ids are dropped. The result is never nil.
func (a *Analyzer) DetectDuplicates(ctx context.Context, cases []workflow.TestCase) ([]workflow.DuplicatePair, error) {
	if len(cases) < 2 {
		return []workflow.DuplicatePair{}, nil
	}

	req := prompts.DetectDuplicates(cases)
	var raw []rawPair
	if err := llm.CompleteInto(ctx, a.gateway, req.Instruction, req.Shape, &raw, a.config.Duplicates.Options(req.Intent)...); err != nil {
		return nil, err
	}

	known := workflow.IndexTestCases(cases)
	seen := make(map[[2]string]bool, len(raw))
	pairs := make([]workflow.DuplicatePair, 0, len(raw))
	dropped := 0
	for _, p := range raw {
		id1, id2 := p.TestCase1ID, p.TestCase2ID
		if id2 < id1 {
			id1, id2 = id2, id1
		}
		_, ok1 := known[id1]
		_, ok2 := known[id2]
		key := [2]string{id1, id2}
		if id1 == id2 || !ok1 || !ok2 || p.Similarity < workflow.MinDuplicateSimilarity || seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		pairs = append(pairs, workflow.DuplicatePair{
			ID:          id1 + "-" + id2,
			TestCase1ID: id1,
			TestCase2ID: id2,
			Similarity:  p.Similarity,
			Rationale:   p.Rationale,
		})
	}

	if dropped > 0 {
		a.logger.Debug("Dropped duplicate pairs", "dropped", dropped, "kept", len(pairs))
	}
	return pairs, nil
}

// AnalyzeImpact returns the cases affected by change, ordered P0, P1, P2
// with response order kept within a priority. Results naming unknown ids
// and repeats are dropped. The result is never nil.
func (a *Analyzer) AnalyzeImpact(ctx context.Context, change string, cases []workflow.TestCase) ([]workflow.ImpactResult, error) {
	if strings.TrimSpace(change) == "" {
		return nil, workflow.ErrEmptyInput
	}
	if len(cases) == 0 {
		return []workflow.ImpactResult{}, nil
	}

	req := prompts.AnalyzeImpact(change, cases)
	var raw []workflow.ImpactResult
	if err := llm.CompleteInto(ctx, a.gateway, req.Instruction, req.Shape, &raw, a.config.Impact.Options(req.Intent)...); err != nil {
		return nil, err
	}

	known := workflow.IndexTestCases(cases)
	seen := make(map[[2]string]bool, len(raw))
	results := make([]workflow.ImpactResult, 0, len(raw))
	for _, r := range raw {
		if _, ok := known[r.TestCaseID]; !ok || seen[r.TestCaseID] {
			continue
		}
		seen[r.TestCaseID] = true
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RecommendedPriority.Rank() < results[j].RecommendedPriority.Rank()
	})

	a.logger.Info("Impact analyzed",
		"test_cases", len(cases),
		"impacted", len(results))
	return results, nil
}
