package prompts

import (
	"github.com/c360studio/casegen/llm/schema"
	"github.com/c360studio/casegen/workflow"
)

// AnalysisShape is the pre-generation review object.
func AnalysisShape() *schema.Schema {
	return schema.Object("requirements review",
		schema.Required("summary", schema.String("two-sentence summary of the core functionality")),
		schema.Required("testCaseCategories", schema.StringArray("applicable testing categories such as Functional, Security, UI/UX, Negative, Performance")),
		schema.Required("estimatedTestCases", schema.String("estimated range of test cases, e.g. 10-15")),
	)
}

// RequirementsShape is the extraction result: an array of requirements.
func RequirementsShape() *schema.Schema {
	return schema.Array("extracted requirements", schema.Object("requirement",
		schema.Required("id", schema.String("unique sequential identifier")),
		schema.Required("description", schema.String("full requirement text")),
		schema.Required("module", schema.String("high-level module or feature area")),
	))
}

// TestCasesShape is the generation result. It declares every test case
// attribute except the creation date, which is stamped locally.
func TestCasesShape(source workflow.Source) *schema.Schema {
	return schema.Array("generated test cases", schema.Object("test case",
		schema.Required("id", schema.String("unique identifier containing the requirement id")),
		schema.Required("title", schema.String("short descriptive title")),
		schema.Required("description", schema.String("one sentence on what the test verifies")),
		schema.Required("requirementId", schema.String("id of the covered requirement, taken from the supplied list")),
		schema.Required("tags", schema.StringArray("classification tags; the first is the primary category").NonEmpty()),
		schema.Required("priority", schema.Enum("priority by requirement criticality", enumValues(workflow.Priorities)...)),
		schema.Required("status", schema.Enum("initial status, always Draft", enumValues(workflow.Statuses)...)),
		schema.Required("source", schema.String("origin of the requirement: "+string(source))),
		schema.Required("compliance", schema.StringArray("compliance standards inferred from the text")),
		schema.Required("steps", schema.StringArray("ordered Given/When/Then steps").NonEmpty()),
		schema.Required("expectedOutcome", schema.String("expected result after the steps")),
	))
}

// ImprovedTestCaseShape carries a full rewrite of the six editable fields.
func ImprovedTestCaseShape() *schema.Schema {
	return schema.Object("improved test case",
		schema.Required("title", schema.String("clearer title")),
		schema.Required("description", schema.String("clearer description")),
		schema.Required("steps", schema.StringArray("rewritten Given/When/Then steps").NonEmpty()),
		schema.Required("expectedOutcome", schema.String("precise expected result")),
		schema.Required("priority", schema.Enum("priority", enumValues(workflow.Priorities)...)),
		schema.Required("tags", schema.StringArray("tags; keep the primary category first").NonEmpty()),
	)
}

// HealPatchShape is a partial update: only fields that changed appear.
func HealPatchShape() *schema.Schema {
	return schema.Object("fields that must change; omit unchanged fields",
		schema.Optional("title", schema.String("updated title")),
		schema.Optional("description", schema.String("updated description")),
		schema.Optional("steps", schema.StringArray("updated steps").NonEmpty()),
		schema.Optional("expectedOutcome", schema.String("updated expected result")),
	)
}

// AutomationShape wraps the pseudo-script in an object so every provider
// can constrain it.
func AutomationShape() *schema.Schema {
	return schema.Object("automation script",
		schema.Required("script", schema.String("line-oriented pseudo-script, one action per line")),
	)
}

// DuplicatesShape is an array of similar pairs. Similarity is bounded to
// 0..100 here; the 80 threshold is applied after parsing.
func DuplicatesShape() *schema.Schema {
	return schema.Array("duplicate pairs", schema.Object("pair",
		schema.Required("testCase1Id", schema.String("id of the first test case")),
		schema.Required("testCase2Id", schema.String("id of the second test case")),
		schema.Required("similarity", schema.Number("similarity percentage", 0, 100)),
		schema.Required("rationale", schema.String("why the two overlap")),
	))
}

// ImpactShape is the subset of test cases a change affects.
func ImpactShape() *schema.Schema {
	return schema.Array("impacted test cases", schema.Object("impact",
		schema.Required("testCaseId", schema.String("id of an affected test case")),
		schema.Required("rationale", schema.String("how the change affects it")),
		schema.Required("recommendedPriority", schema.Enum("execution priority for this change",
			string(workflow.P0), string(workflow.P1), string(workflow.P2))),
		schema.Required("suggestion", schema.Enum("recommended action",
			string(workflow.SuggestionRunAsIs), string(workflow.SuggestionReview),
			string(workflow.SuggestionUpdateRequired), string(workflow.SuggestionObsolete))),
	))
}
