// Package testcaseassistant rewrites, automates and heals individual test
// cases. Every operation returns data for the caller to apply; nothing is
// stored here.
package testcaseassistant

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"
	"github.com/c360studio/casegen/workflow/prompts"
)

// Assistant runs single-test-case operations through the gateway.
type Assistant struct {
	gateway llm.StructuredCompleter
	config  Config
	logger  *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(a *Assistant) {
		a.config = cfg
	}
}

// New creates an assistant over gateway.
func New(gateway llm.StructuredCompleter, opts ...Option) *Assistant {
	a := &Assistant{
		gateway: gateway,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type improvedFields struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Steps           []string          `json:"steps"`
	ExpectedOutcome string            `json:"expectedOutcome"`
	Priority        workflow.Priority `json:"priority"`
	Tags            []string          `json:"tags"`
}

// Improve returns a rewrite of tc's title, description, steps, expected
// outcome, priority and tags. No other field can be set by the patch.
func (a *Assistant) Improve(ctx context.Context, tc workflow.TestCase) (workflow.TestCasePatch, error) {
	req := prompts.ImproveTestCase(tc)

	var out improvedFields
	if err := llm.CompleteInto(ctx, a.gateway, req.Instruction, req.Shape, &out, a.config.Improve.Options(req.Intent)...); err != nil {
		return workflow.TestCasePatch{}, err
	}

	patch := workflow.TestCasePatch{
		Title:           &out.Title,
		Description:     &out.Description,
		Steps:           out.Steps,
		ExpectedOutcome: &out.ExpectedOutcome,
		Priority:        &out.Priority,
		Tags:            out.Tags,
	}
	a.logger.Debug("Test case improved", "test_case_id", tc.ID)
	return patch, nil
}

// Automate returns a line-oriented pseudo-script for tc.
func (a *Assistant) Automate(ctx context.Context, tc workflow.TestCase) (string, error) {
	req := prompts.AutomateTestCase(tc)

	var out struct {
		Script string `json:"script"`
	}
	if err := llm.CompleteInto(ctx, a.gateway, req.Instruction, req.Shape, &out, a.config.Automate.Options(req.Intent)...); err != nil {
		return "", err
	}
	return out.Script, nil
}

type healedFields struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Steps           []string `json:"steps"`
	ExpectedOutcome *string  `json:"expectedOutcome"`
}

// Heal returns the edit that brings tc in line with change. The patch only
// holds fields that differ from tc, chosen from title, description, steps
// and expected outcome. An empty patch means no change is needed.
func (a *Assistant) Heal(ctx context.Context, tc workflow.TestCase, change, rationale string) (workflow.TestCasePatch, error) {
	if strings.TrimSpace(change) == "" {
		return workflow.TestCasePatch{}, workflow.ErrEmptyInput
	}
	req := prompts.HealTestCase(tc, change, rationale)

	var out healedFields
	if err := llm.CompleteInto(ctx, a.gateway, req.Instruction, req.Shape, &out, a.config.Heal.Options(req.Intent)...); err != nil {
		return workflow.TestCasePatch{}, err
	}

	var patch workflow.TestCasePatch
	if out.Title != nil && *out.Title != tc.Title {
		patch.Title = out.Title
	}
	if out.Description != nil && *out.Description != tc.Description {
		patch.Description = out.Description
	}
	if out.Steps != nil && !slices.Equal(out.Steps, tc.Steps) {
		patch.Steps = out.Steps
	}
	if out.ExpectedOutcome != nil && *out.ExpectedOutcome != tc.ExpectedOutcome {
		patch.ExpectedOutcome = out.ExpectedOutcome
	}

	a.logger.Debug("Test case healed",
		"test_case_id", tc.ID,
		"changed_fields", patch.Fields())
	return patch, nil
}
