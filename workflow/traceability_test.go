package workflow

import (
	"reflect"
	"testing"
)

func TestBuildTraceability(t *testing.T) {
	reqs := []Requirement{
		{ID: "REQ-001", Description: "Login"},
		{ID: "REQ-002", Description: "Logout"},
		{ID: "REQ-003", Description: "Audit"},
	}
	mk := func(id, req string, p Priority, compliance ...string) TestCase {
		return TestCase{ID: id, RequirementID: req, Priority: p, Compliance: compliance}
	}
	cases := []TestCase{
		mk("TC-1", "REQ-001", PriorityMedium, "HIPAA"),
		mk("TC-2", "REQ-001", PriorityCritical, "HIPAA", "GDPR"),
		mk("TC-3", "REQ-002", PriorityMedium),
		mk("TC-4", "REQ-999", PriorityHigh),
	}

	report := BuildTraceability(reqs, cases)

	if len(report.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(report.Rows))
	}
	login, logout, audit := report.Rows[0], report.Rows[1], report.Rows[2]

	if login.Status != CoverageCovered || login.Priority != PriorityCritical {
		t.Errorf("login row = %+v", login)
	}
	if !reflect.DeepEqual(login.TestCaseIDs, []string{"TC-1", "TC-2"}) {
		t.Errorf("login ids = %v", login.TestCaseIDs)
	}
	if !reflect.DeepEqual(login.Compliance, []string{"HIPAA", "GDPR"}) {
		t.Errorf("login compliance = %v", login.Compliance)
	}
	if logout.Status != CoveragePartial || logout.Priority != PriorityMedium {
		t.Errorf("logout row = %+v", logout)
	}
	if audit.Status != CoverageNotCovered || audit.Priority != PriorityLow || len(audit.Compliance) != 0 {
		t.Errorf("audit row = %+v", audit)
	}

	if len(report.Orphans) != 1 || report.Orphans[0].ID != "TC-4" {
		t.Errorf("orphans = %+v", report.Orphans)
	}

	want := TraceSummary{Requirements: 3, TestCases: 4, Covered: 1, Partial: 1, NotCovered: 1, Orphans: 1, CoverageRate: 50}
	if report.Summary != want {
		t.Errorf("summary = %+v, want %+v", report.Summary, want)
	}

	if rows := report.RowsByStatus(CoverageNotCovered); len(rows) != 1 || rows[0].Requirement.ID != "REQ-003" {
		t.Errorf("RowsByStatus(Not Covered) = %+v", rows)
	}
}

func TestBuildTraceability_Empty(t *testing.T) {
	report := BuildTraceability(nil, nil)
	if report.Summary.CoverageRate != 0 || report.Rows == nil || report.Orphans == nil {
		t.Errorf("empty report = %+v", report)
	}
}

func TestFindOrphans(t *testing.T) {
	reqs := []Requirement{{ID: "REQ-001"}}
	cases := []TestCase{{ID: "a", RequirementID: "REQ-001"}, {ID: "b", RequirementID: "REQ-X"}}
	orphans := FindOrphans(reqs, cases)
	if len(orphans) != 1 || orphans[0].ID != "b" {
		t.Errorf("FindOrphans() = %+v", orphans)
	}
	if FindOrphans(reqs, cases[:1]) != nil {
		t.Error("no orphans should be nil")
	}
}
