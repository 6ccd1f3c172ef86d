package requirementextractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/llm/testutil"
	"github.com/c360studio/casegen/workflow"
	"github.com/c360studio/casegen/workflow/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor(mock *testutil.MockCompleter) *Extractor {
	return New(llm.NewGateway(mock))
}

func TestExtract_LoginScenario(t *testing.T) {
	mock := &testutil.MockCompleter{Contents: []string{
		`[{"id": "REQ-001", "description": "Users can log in with email and password", "module": "Authentication", "source": "Issue Tracker"}]`,
	}}
	e := newExtractor(mock)

	reqs, err := e.Extract(context.Background(), "As a user, I want to log in.")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "REQ-001", reqs[0].ID)
	assert.NotEmpty(t, reqs[0].Description)
	assert.Equal(t, "Authentication", reqs[0].Module)
	assert.Empty(t, reqs[0].Source, "source is attached by the caller")

	req := mock.Requests()[0]
	assert.Equal(t, prompts.IntentExtractRequirements, req.Intent)
	assert.Contains(t, mock.LastPrompt(), "As a user, I want to log in.")
	assert.Contains(t, mock.LastPrompt(), "REQ-001, REQ-002")

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.DocumentsProcessed)
	assert.Equal(t, int64(1), stats.RequirementsExtracted)
}

func TestExtract_APISpecVariant(t *testing.T) {
	mock := &testutil.MockCompleter{Contents: []string{
		`[{"id": "API-001", "description": "GET /pets: list pets", "module": "Pets"}]`,
	}}
	e := newExtractor(mock)

	reqs, err := e.Extract(context.Background(), "openapi: 3.0.0\npaths:\n  /pets:\n    get: {}\n")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Contains(t, mock.LastPrompt(), "per HTTP method and path")
}

func TestExtract_EmptyInput(t *testing.T) {
	mock := &testutil.MockCompleter{}
	e := newExtractor(mock)

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := e.Extract(context.Background(), text)
		assert.ErrorIs(t, err, workflow.ErrEmptyInput)
		_, err = e.Analyze(context.Background(), text)
		assert.ErrorIs(t, err, workflow.ErrEmptyInput)
	}
	assert.Equal(t, 0, mock.CallCount())
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name  string
		mock  *testutil.MockCompleter
		check func(t *testing.T, err error)
	}{
		{
			name: "object instead of array",
			mock: &testutil.MockCompleter{Contents: []string{`{"requirements": []}`}},
			check: func(t *testing.T, err error) {
				assert.True(t, llm.IsInvalidShape(err))
			},
		},
		{
			name: "missing module",
			mock: &testutil.MockCompleter{Contents: []string{`[{"id": "REQ-001", "description": "x"}]`}},
			check: func(t *testing.T, err error) {
				assert.True(t, llm.IsInvalidShape(err))
			},
		},
		{
			name: "prose",
			mock: &testutil.MockCompleter{Contents: []string{"I could not find any requirements."}},
			check: func(t *testing.T, err error) {
				assert.True(t, llm.IsMalformedResponse(err))
			},
		},
		{
			name: "backend down",
			mock: &testutil.MockCompleter{Err: errors.New("dial tcp: connection refused")},
			check: func(t *testing.T, err error) {
				assert.True(t, llm.IsServiceError(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExtractor(tt.mock)
			reqs, err := e.Extract(context.Background(), "The system shall export reports.")
			require.Error(t, err)
			assert.Nil(t, reqs)
			tt.check(t, err)
			assert.Equal(t, int64(1), e.Stats().ExtractionsFailed)
		})
	}
}

func TestExtract_EmptyArrayIsValid(t *testing.T) {
	e := newExtractor(&testutil.MockCompleter{Contents: []string{"[]"}})
	reqs, err := e.Extract(context.Background(), "Lorem ipsum.")
	require.NoError(t, err)
	assert.NotNil(t, reqs)
	assert.Empty(t, reqs)
}

func TestExtract_UsesConfiguredRouting(t *testing.T) {
	mock := &testutil.MockCompleter{Contents: []string{"[]"}}
	temp := 0.0
	e := New(llm.NewGateway(mock), WithConfig(Config{
		Extraction: llm.CallConfig{Capability: "fast", Temperature: &temp},
	}))

	_, err := e.Extract(context.Background(), "text")
	require.NoError(t, err)
	req := mock.Requests()[0]
	assert.Equal(t, "fast", req.Capability)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, *req.Temperature)
}

func TestAnalyze(t *testing.T) {
	mock := &testutil.MockCompleter{Contents: []string{
		`{"summary": "Login and audit. Two features.", "testCaseCategories": ["Functional", "Security"], "estimatedTestCases": "10-15"}`,
	}}
	e := newExtractor(mock)

	analysis, err := e.Analyze(context.Background(), "Users log in. Actions are audited.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Functional", "Security"}, analysis.TestCaseCategories)
	assert.Equal(t, "10-15", analysis.EstimatedTestCases)
	assert.True(t, strings.HasPrefix(analysis.Summary, "Login"))
	assert.Equal(t, prompts.IntentAnalyzeRequirements, mock.Requests()[0].Intent)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	hot := 3.0
	cfg.Analysis.Temperature = &hot
	assert.Error(t, cfg.Validate())
}
