package prompts

import (
	"fmt"
	"strings"

	"github.com/c360studio/casegen/workflow"
)

// DetectDuplicates asks for pairs of test cases that verify substantially
// the same behavior.
func DetectDuplicates(cases []workflow.TestCase) Request {
	var sb strings.Builder
	sb.WriteString("You are a QA lead de-duplicating a test suite. Compare the test cases below pairwise.\n\n")
	writeRules(&sb, []string{
		"Report a pair only when both test cases verify substantially the same behavior with equivalent steps and outcome.",
		fmt.Sprintf("Score similarity from 0 to 100 and report only pairs scoring %d or higher.", workflow.MinDuplicateSimilarity),
		"Put the lexicographically smaller id in testCase1Id.",
		"Report each pair once and never pair a test case with itself.",
		"Use only ids that appear in the list.",
		"Explain the overlap in one sentence in rationale.",
		"Return an empty array when there are no duplicates.",
	})
	sb.WriteString("## Test Cases\n\n")
	sb.WriteString(encodeTestCases(cases))
	sb.WriteString("\n")

	return Request{
		Intent:      IntentDetectDuplicates,
		Instruction: sb.String(),
		Shape:       DuplicatesShape(),
	}
}

// AnalyzeImpact asks which test cases a change affects and what to do
// with each.
func AnalyzeImpact(change string, cases []workflow.TestCase) Request {
	var sb strings.Builder
	sb.WriteString("You are a QA lead planning regression testing for a change.\n\n")
	sb.WriteString("## Change\n\n")
	sb.WriteString(strings.TrimSpace(change))
	sb.WriteString("\n\n")
	writeRules(&sb, []string{
		"Select only the test cases the change plausibly affects. Leave out unrelated ones.",
		"Give each selected test case an execution priority for this change: P0 must run first, P1 should run, P2 can run later. This is independent of the stored priority.",
		"Suggest one action per test case: 'Run as-is', 'Review recommended', 'Update required' (steps or outcome no longer match) or 'Potentially obsolete' (behavior removed).",
		"Explain the impact in one sentence in rationale.",
		"Use only ids that appear in the list.",
		"Return an empty array when the change affects no test case.",
	})
	sb.WriteString("## Test Cases\n\n")
	sb.WriteString(encodeTestCases(cases))
	sb.WriteString("\n")

	return Request{
		Intent:      IntentAnalyzeImpact,
		Instruction: sb.String(),
		Shape:       ImpactShape(),
	}
}
