package workflow

import "sort"

// CoverageStatus summarizes how well a requirement is tested.
type CoverageStatus string

const (
	CoverageCovered    CoverageStatus = "Covered"
	CoveragePartial    CoverageStatus = "Partial"
	CoverageNotCovered CoverageStatus = "Not Covered"
)

// coverageFor applies the linked-case thresholds: more than one case is
// full coverage, exactly one is partial.
func coverageFor(linked int) CoverageStatus {
	switch {
	case linked > 1:
		return CoverageCovered
	case linked == 1:
		return CoveragePartial
	default:
		return CoverageNotCovered
	}
}

// TraceRow is the coverage of one requirement.
type TraceRow struct {
	Requirement Requirement    `json:"requirement"`
	TestCaseIDs []string       `json:"testCaseIds"`
	Status      CoverageStatus `json:"status"`
	Priority    Priority       `json:"priority"`
	Compliance  []string       `json:"compliance"`
}

// TraceSummary aggregates a traceability report.
type TraceSummary struct {
	Requirements int     `json:"requirements"`
	TestCases    int     `json:"testCases"`
	Covered      int     `json:"covered"`
	Partial      int     `json:"partial"`
	NotCovered   int     `json:"notCovered"`
	Orphans      int     `json:"orphans"`
	CoverageRate float64 `json:"coverageRate"`
}

// Traceability links requirements to the test cases that verify them.
type Traceability struct {
	Rows []TraceRow `json:"rows"`
	// Orphans are test cases naming a requirement id not in the report.
	Orphans []TestCase   `json:"orphans"`
	Summary TraceSummary `json:"summary"`
}

// BuildTraceability computes per-requirement coverage. Rows follow the
// order of reqs; linked test case ids follow the order of cases.
func BuildTraceability(reqs []Requirement, cases []TestCase) *Traceability {
	byReq := make(map[string][]TestCase, len(reqs))
	known := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		known[r.ID] = true
	}

	report := &Traceability{
		Rows:    make([]TraceRow, 0, len(reqs)),
		Orphans: []TestCase{},
	}
	for _, tc := range cases {
		if !known[tc.RequirementID] {
			report.Orphans = append(report.Orphans, tc)
			continue
		}
		byReq[tc.RequirementID] = append(byReq[tc.RequirementID], tc)
	}

	sum := &report.Summary
	sum.Requirements = len(reqs)
	sum.TestCases = len(cases)
	sum.Orphans = len(report.Orphans)

	for _, r := range reqs {
		linked := byReq[r.ID]
		row := TraceRow{
			Requirement: r,
			TestCaseIDs: make([]string, 0, len(linked)),
			Status:      coverageFor(len(linked)),
			Priority:    PriorityLow,
			Compliance:  []string{},
		}
		var compliance []string
		for _, tc := range linked {
			row.TestCaseIDs = append(row.TestCaseIDs, tc.ID)
			if tc.Priority.IsValid() && tc.Priority.Rank() < row.Priority.Rank() {
				row.Priority = tc.Priority
			}
			compliance = append(compliance, tc.Compliance...)
		}
		if len(compliance) > 0 {
			row.Compliance = dedupe(compliance)
		}

		switch row.Status {
		case CoverageCovered:
			sum.Covered++
		case CoveragePartial:
			sum.Partial++
		default:
			sum.NotCovered++
		}
		report.Rows = append(report.Rows, row)
	}

	if sum.Requirements > 0 {
		sum.CoverageRate = (float64(sum.Covered) + 0.5*float64(sum.Partial)) / float64(sum.Requirements) * 100
	}
	return report
}

// FindOrphans returns the test cases whose requirement id is not among
// reqs, preserving input order.
func FindOrphans(reqs []Requirement, cases []TestCase) []TestCase {
	known := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		known[r.ID] = true
	}
	var orphans []TestCase
	for _, tc := range cases {
		if !known[tc.RequirementID] {
			orphans = append(orphans, tc)
		}
	}
	return orphans
}

// RowsByStatus returns the rows with the given coverage, sorted by
// requirement id.
func (t *Traceability) RowsByStatus(status CoverageStatus) []TraceRow {
	var rows []TraceRow
	for _, row := range t.Rows {
		if row.Status == status {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Requirement.ID < rows[j].Requirement.ID
	})
	return rows
}
