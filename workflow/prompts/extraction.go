package prompts

import (
	"strings"

	"github.com/c360studio/casegen/workflow"
)

// AnalyzeRequirements asks for a quick review of a document before
// generation: a summary, relevant testing categories and a size estimate.
func AnalyzeRequirements(text string) Request {
	var sb strings.Builder
	sb.WriteString("You are an expert QA analyst. Review the requirements document below and summarize it for test planning.\n\n")
	writeRules(&sb, []string{
		"Summary: write a brief, two-sentence summary of the core functionality described.",
		"Categories: list the kinds of testing that apply, chosen from Functional, Security, UI/UX, Negative, Performance.",
		`Estimation: give a realistic range for the number of test cases the document supports, for example "10-15".`,
	})
	writeDocument(&sb, "Requirements Document", text)

	return Request{
		Intent:      IntentAnalyzeRequirements,
		Instruction: sb.String(),
		Shape:       AnalysisShape(),
	}
}

// ExtractRequirements asks for the discrete, testable requirements in a
// document. The API variant extracts one entry per endpoint.
func ExtractRequirements(text string, variant workflow.InputVariant) Request {
	var sb strings.Builder
	if variant == workflow.VariantAPISpec {
		sb.WriteString("You are a senior API analyst. The document below is an API specification (OpenAPI or Swagger). Extract every endpoint as a testable requirement.\n\n")
		writeRules(&sb, []string{
			"Identify: create one requirement per operation, that is per HTTP method and path pair.",
			"ID Generation: assign a unique, sequential id to each endpoint (API-001, API-002, ...).",
			`Description: start with the method and path, e.g. "POST /patients: creates a patient record", then summarize parameters, request body, auth requirements and documented responses.`,
			"Module: use the endpoint's tag or resource group (e.g. 'Patients', 'Auth', 'Billing').",
			"Do not invent endpoints that are not in the document.",
		})
	} else {
		sb.WriteString("You are a senior business analyst. Analyze the requirements document below and extract each distinct functional or non-functional requirement.\n\n")
		writeRules(&sb, []string{
			"Identify: read the whole document and pick out individual, testable requirements.",
			"ID Generation: assign a unique, sequential id to each requirement (REQ-001, REQ-002, ...).",
			"Description: capture the full text of the requirement.",
			"Module: categorize each requirement into a high-level module such as 'Authentication', 'Clinical', 'Security' or 'Integrations'.",
			"Split compound statements that describe more than one behavior into separate requirements.",
		})
	}
	writeDocument(&sb, "Requirements Document", text)

	return Request{
		Intent:      IntentExtractRequirements,
		Instruction: sb.String(),
		Shape:       RequirementsShape(),
	}
}
