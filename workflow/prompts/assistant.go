package prompts

import (
	"strings"

	"github.com/c360studio/casegen/workflow"
)

// ImproveTestCase asks for a clearer rewrite of one test case.
func ImproveTestCase(tc workflow.TestCase) Request {
	var sb strings.Builder
	sb.WriteString("You are a senior QA engineer reviewing a test case for clarity and completeness.\n\n")
	writeRules(&sb, []string{
		"Rewrite the title and description so the intent is unambiguous.",
		"Rewrite the steps in Gherkin form (Given, When, Then, And, But). Add missing preconditions and make each step a single action or check.",
		"Make the expected outcome specific and verifiable.",
		"Reassess the priority (Critical, High, Medium or Low) and the tags. Keep the primary category as the first tag unless it is wrong.",
		"Return only title, description, steps, expectedOutcome, priority and tags. Do not change what is being tested.",
	})
	sb.WriteString("## Test Case\n\n")
	sb.WriteString(encodeTestCase(tc))
	sb.WriteString("\n")

	return Request{
		Intent:      IntentImproveTestCase,
		Instruction: sb.String(),
		Shape:       ImprovedTestCaseShape(),
	}
}

// AutomateTestCase asks for a line-oriented pseudo-script implementing the
// test case. The script is descriptive text and is never executed.
func AutomateTestCase(tc workflow.TestCase) Request {
	var sb strings.Builder
	sb.WriteString("You are a test automation engineer. Translate the test case below into an automation pseudo-script.\n\n")
	writeRules(&sb, []string{
		"Write one action or assertion per line, in the order of the steps.",
		"Use readable function-call style, e.g. open_page(\"/login\"), type(\"#email\", \"user@example.com\"), assert_visible(\"Dashboard\").",
		"Start with a comment line naming the test case id and title.",
		"Cover every step and end with assertions for the expected outcome.",
		"Do not target a specific framework.",
	})
	sb.WriteString("## Test Case\n\n")
	sb.WriteString(encodeTestCase(tc))
	sb.WriteString("\n")

	return Request{
		Intent:      IntentAutomateTestCase,
		Instruction: sb.String(),
		Shape:       AutomationShape(),
	}
}

// HealTestCase asks for the minimal edit that brings a test case in line
// with a change. Only fields that need to change are returned.
func HealTestCase(tc workflow.TestCase, change, rationale string) Request {
	var sb strings.Builder
	sb.WriteString("You are a QA engineer updating a test case after an application change.\n\n")
	sb.WriteString("## Change\n\n")
	sb.WriteString(strings.TrimSpace(change))
	sb.WriteString("\n\n## Impact Rationale\n\n")
	sb.WriteString(strings.TrimSpace(rationale))
	sb.WriteString("\n\n")
	writeRules(&sb, []string{
		"Update the test case so it is correct after the change.",
		"Return only the fields that must change, chosen from title, description, steps and expectedOutcome. Omit fields that stay the same.",
		"Return an empty object {} when no change is needed.",
		"When returning steps, return the complete updated list in Gherkin form.",
	})
	sb.WriteString("## Test Case\n\n")
	sb.WriteString(encodeTestCase(tc))
	sb.WriteString("\n")

	return Request{
		Intent:      IntentHealTestCase,
		Instruction: sb.String(),
		Shape:       HealPatchShape(),
	}
}
