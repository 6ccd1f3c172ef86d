package prompts

import (
	"fmt"
	"strings"

	"github.com/c360studio/casegen/workflow"
)

// RequirementLines renders requirements as "- id: description" lines.
func RequirementLines(reqs []workflow.Requirement) string {
	lines := make([]string, len(reqs))
	for i, r := range reqs {
		lines[i] = fmt.Sprintf("- %s: %s", r.ID, r.Description)
	}
	return strings.Join(lines, "\n")
}

// GenerateTestCases asks for structured test cases covering the supplied
// requirements. The requirement list is embedded so every case can name a
// valid requirementId.
func GenerateTestCases(text string, source workflow.Source, reqs []workflow.Requirement, variant workflow.InputVariant) Request {
	exampleReq := "REQ-001"
	if len(reqs) > 0 {
		exampleReq = reqs[0].ID
	}

	var sb strings.Builder
	sb.WriteString("You are an expert QA engineer specializing in regulated software validation.\n\n")
	sb.WriteString("## Requirements List\n\n")
	sb.WriteString(RequirementLines(reqs))
	sb.WriteString("\n\n")

	if variant == workflow.VariantAPISpec {
		sb.WriteString("Based on the API specification below, generate API test cases for every endpoint in the list. For each endpoint cover the success path and the failure modes listed in the rules.\n\n")
	} else {
		sb.WriteString("Based on the requirements document below, generate a comprehensive list of structured test cases. For each requirement create several test cases covering positive, negative and edge-case scenarios.\n\n")
	}

	rules := []string{
		fmt.Sprintf("Requirement ID: every test case MUST reference one of the requirement ids from the list above (e.g. %s). Never invent ids; this is critical for traceability.", exampleReq),
		fmt.Sprintf("ID Generation: give each test case a unique id that contains its requirement id (e.g. TC-%s-001).", exampleReq),
		"Title: write a short, descriptive title.",
		"Tags: give each test case several relevant tags. The first tag is the primary category; spread primary categories across Functional, Security, UI/UX, Performance, Integration and Negative rather than tagging everything Functional.",
		"Priority: choose Critical, High, Medium or Low according to how critical the requirement is and the impact of a failure.",
		"Status: set the status of every test case to 'Draft'.",
		fmt.Sprintf("Source: set the source of every test case to '%s'.", source),
		"Compliance: infer relevant compliance standards from the text, such as HIPAA, GDPR, FDA, CLIA or SOC2. Use an empty list when none apply.",
		"Steps: write the steps in Gherkin form, each starting with Given, When, Then, And or But, in execution order.",
	}
	if variant == workflow.VariantAPISpec {
		rules = append(rules,
			"Status codes: for each endpoint include a 2xx success case, 4xx invalid-input cases, 401/403 authentication and authorization cases, a 404 not-found case and a 422 validation case where the endpoint accepts a body.",
			"Security: include injection-style probes (SQL, script and header injection) against parameters and request bodies.",
			"Expected outcome: state the expected status code and the key response fields.",
		)
	} else {
		rules = append(rules,
			"Traceability: make each test case detailed, unambiguous and directly traceable to its requirement.",
		)
	}
	writeRules(&sb, rules)
	writeDocument(&sb, "Requirements Document", text)

	return Request{
		Intent:      IntentGenerateTestCases,
		Instruction: sb.String(),
		Shape:       TestCasesShape(source),
	}
}
