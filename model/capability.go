// Package model provides capability-based model selection for pipeline stages.
// Stages ask for a capability (extraction, generation, review) and the
// registry resolves it to configured endpoints with fallback chains.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityExtraction is for turning documents into discrete requirements.
	CapabilityExtraction Capability = "extraction"

	// CapabilityGeneration is for producing structured test cases.
	CapabilityGeneration Capability = "generation"

	// CapabilityReview is for improving and healing individual test cases.
	CapabilityReview Capability = "review"

	// CapabilityAnalysis is for suite-wide reasoning: duplicates, impact.
	CapabilityAnalysis Capability = "analysis"

	// CapabilityAutomation is for writing automation scripts.
	CapabilityAutomation Capability = "automation"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// IntentCapabilities maps prompt intents to their default capability.
var IntentCapabilities = map[string]Capability{
	"extract-requirements": CapabilityExtraction,
	"analyze-requirements": CapabilityFast,
	"generate-test-cases":  CapabilityGeneration,
	"improve-test-case":    CapabilityReview,
	"heal-test-case":       CapabilityReview,
	"automate-test-case":   CapabilityAutomation,
	"detect-duplicates":    CapabilityAnalysis,
	"analyze-impact":       CapabilityAnalysis,
}

// CapabilityForIntent returns the default capability for a prompt intent.
// Unknown intents resolve to CapabilityGeneration.
func CapabilityForIntent(intent string) Capability {
	if c, ok := IntentCapabilities[intent]; ok {
		return c
	}
	return CapabilityGeneration
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityExtraction, CapabilityGeneration, CapabilityReview,
		CapabilityAnalysis, CapabilityAutomation, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
