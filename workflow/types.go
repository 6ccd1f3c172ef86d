// Package workflow defines the records that flow through the generation
// pipeline (requirements, test cases, duplicate pairs, impact results) and
// the pure operations over them: validation, patching, bulk edits,
// traceability and input classification.
package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Source records how requirement text entered the system.
type Source string

const (
	SourceDocumentUpload Source = "Document Upload"
	SourceManualEntry    Source = "Manual Entry"
	SourceIssueTracker   Source = "Issue Tracker"
	SourceAPISpec        Source = "API Specification"
)

// Sources lists every valid Source.
var Sources = []Source{SourceDocumentUpload, SourceManualEntry, SourceIssueTracker, SourceAPISpec}

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	switch s {
	case SourceDocumentUpload, SourceManualEntry, SourceIssueTracker, SourceAPISpec:
		return true
	}
	return false
}

// sourceAliases maps accepted spellings to sources. Keys are lower case.
var sourceAliases = map[string]Source{
	"document upload":   SourceDocumentUpload,
	"document":          SourceDocumentUpload,
	"upload":            SourceDocumentUpload,
	"manual entry":      SourceManualEntry,
	"manual":            SourceManualEntry,
	"issue tracker":     SourceIssueTracker,
	"jira":              SourceIssueTracker,
	"api specification": SourceAPISpec,
	"api spec":          SourceAPISpec,
	"api":               SourceAPISpec,
	"openapi":           SourceAPISpec,
}

// ParseSource resolves a source label, accepting legacy and short forms.
func ParseSource(s string) (Source, error) {
	if src, ok := sourceAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return src, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Priority is a test case's static priority.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Priorities lists priorities from most to least important.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Rank orders priorities; Critical is 0. Unknown values rank last.
func (p Priority) Rank() int {
	for i, candidate := range Priorities {
		if p == candidate {
			return i
		}
	}
	return len(Priorities)
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	return p.Rank() < len(Priorities)
}

// Status is a test case's lifecycle state.
type Status string

const (
	StatusDraft       Status = "Draft"
	StatusActive      Status = "Active"
	StatusUnderReview Status = "Under Review"
	StatusCompleted   Status = "Completed"
	StatusPending     Status = "Pending"
)

// Statuses lists every valid Status.
var Statuses = []Status{StatusDraft, StatusActive, StatusUnderReview, StatusCompleted, StatusPending}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Requirement is a discrete, testable statement extracted from a document.
// Requirements are immutable once committed.
type Requirement struct {
	ID          string `json:"id" validate:"required"`
	Description string `json:"description" validate:"required"`
	Module      string `json:"module"`
	Source      Source `json:"source" validate:"source"`
}

// TestCase is a steps-based verification scenario linked to exactly one
// requirement. ID and RequirementID never change after creation.
type TestCase struct {
	ID              string    `json:"id" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	RequirementID   string    `json:"requirementId" validate:"required"`
	Tags            []string  `json:"tags" validate:"required,min=1,dive,required"`
	Priority        Priority  `json:"priority" validate:"priority"`
	Status          Status    `json:"status" validate:"status"`
	Source          Source    `json:"source" validate:"source"`
	Compliance      []string  `json:"compliance"`
	Steps           []string  `json:"steps" validate:"required,min=1"`
	ExpectedOutcome string    `json:"expectedOutcome" validate:"required"`
	DateCreated     time.Time `json:"dateCreated" validate:"required"`
}

// PrimaryTag returns the first tag, which drives grouping.
func (tc TestCase) PrimaryTag() string {
	if len(tc.Tags) == 0 {
		return ""
	}
	return tc.Tags[0]
}

// DuplicatePair reports two test cases that verify substantially the same
// behavior. TestCase1ID sorts before or equal to TestCase2ID.
type DuplicatePair struct {
	ID          string  `json:"id"`
	TestCase1ID string  `json:"testCase1Id"`
	TestCase2ID string  `json:"testCase2Id"`
	Similarity  float64 `json:"similarity"`
	Rationale   string  `json:"rationale"`
}

// MinDuplicateSimilarity is the lowest similarity reported as a duplicate.
const MinDuplicateSimilarity = 80

// RecommendedPriority is a per-change execution priority, independent of
// the test case's static Priority.
type RecommendedPriority string

const (
	P0 RecommendedPriority = "P0"
	P1 RecommendedPriority = "P1"
	P2 RecommendedPriority = "P2"
)

// Rank orders recommended priorities; P0 is 0.
func (p RecommendedPriority) Rank() int {
	switch p {
	case P0:
		return 0
	case P1:
		return 1
	case P2:
		return 2
	}
	return 3
}

// Suggestion is the recommended action for an impacted test case.
type Suggestion string

const (
	SuggestionRunAsIs        Suggestion = "Run as-is"
	SuggestionReview         Suggestion = "Review recommended"
	SuggestionUpdateRequired Suggestion = "Update required"
	SuggestionObsolete       Suggestion = "Potentially obsolete"
)

// ImpactResult describes how a change affects one test case.
type ImpactResult struct {
	TestCaseID          string              `json:"testCaseId"`
	Rationale           string              `json:"rationale"`
	RecommendedPriority RecommendedPriority `json:"recommendedPriority"`
	Suggestion          Suggestion          `json:"suggestion"`
}

// Analysis is a quick pre-generation review of a requirements document.
type Analysis struct {
	Summary            string   `json:"summary"`
	TestCaseCategories []string `json:"testCaseCategories"`
	EstimatedTestCases string   `json:"estimatedTestCases"`
}

// IndexTestCases maps test case ids to their records.
func IndexTestCases(cases []TestCase) map[string]TestCase {
	index := make(map[string]TestCase, len(cases))
	for _, tc := range cases {
		index[tc.ID] = tc
	}
	return index
}
