// Package prompts builds the instructions and response shapes sent to the
// completion backend. Every builder is pure: same inputs, same Request.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/casegen/llm/schema"
	"github.com/c360studio/casegen/workflow"
)

// Intents name each kind of completion. They key model capability routing.
const (
	IntentAnalyzeRequirements = "analyze-requirements"
	IntentExtractRequirements = "extract-requirements"
	IntentGenerateTestCases   = "generate-test-cases"
	IntentImproveTestCase     = "improve-test-case"
	IntentAutomateTestCase    = "automate-test-case"
	IntentDetectDuplicates    = "detect-duplicates"
	IntentAnalyzeImpact       = "analyze-impact"
	IntentHealTestCase        = "heal-test-case"
)

// Request is a ready-to-send completion: the instruction text and the
// shape the response must satisfy.
type Request struct {
	Intent      string
	Instruction string
	Shape       *schema.Schema
}

// writeRules renders rules as a numbered list.
func writeRules(sb *strings.Builder, rules []string) {
	sb.WriteString("## Rules\n\n")
	for i, rule := range rules {
		fmt.Fprintf(sb, "%d. %s\n", i+1, rule)
	}
	sb.WriteString("\n")
}

// writeDocument fences free text so the model can tell it from the rules.
func writeDocument(sb *strings.Builder, heading, text string) {
	fmt.Fprintf(sb, "## %s\n\n---\n%s\n---\n", heading, strings.TrimSpace(text))
}

// promptTestCase is the subset of a test case the backend needs to reason
// about it. Dates and provenance are omitted.
type promptTestCase struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	RequirementID   string   `json:"requirementId"`
	Tags            []string `json:"tags"`
	Priority        string   `json:"priority"`
	Steps           []string `json:"steps"`
	ExpectedOutcome string   `json:"expectedOutcome"`
}

func toPromptTestCase(tc workflow.TestCase) promptTestCase {
	return promptTestCase{
		ID:              tc.ID,
		Title:           tc.Title,
		Description:     tc.Description,
		RequirementID:   tc.RequirementID,
		Tags:            tc.Tags,
		Priority:        string(tc.Priority),
		Steps:           tc.Steps,
		ExpectedOutcome: tc.ExpectedOutcome,
	}
}

// encodeTestCase renders one case as indented JSON. Marshalling plain
// strings cannot fail, so the error is dropped.
func encodeTestCase(tc workflow.TestCase) string {
	data, _ := json.MarshalIndent(toPromptTestCase(tc), "", "  ")
	return string(data)
}

// encodeTestCases renders a list of cases as an indented JSON array.
func encodeTestCases(cases []workflow.TestCase) string {
	out := make([]promptTestCase, len(cases))
	for i, tc := range cases {
		out[i] = toPromptTestCase(tc)
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return string(data)
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
