package storage

import (
	"context"
	"testing"
	"time"

	"github.com/c360studio/casegen/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirement(id string) workflow.Requirement {
	return workflow.Requirement{
		ID:          id,
		Description: "The system shall " + id,
		Module:      "Auth",
		Source:      workflow.SourceDocumentUpload,
	}
}

func testCase(id, reqID string) workflow.TestCase {
	return workflow.TestCase{
		ID:              id,
		Title:           "Verify " + id,
		Description:     "Checks " + reqID,
		RequirementID:   reqID,
		Tags:            []string{"Login"},
		Priority:        workflow.PriorityHigh,
		Status:          workflow.StatusDraft,
		Source:          workflow.SourceDocumentUpload,
		Compliance:      []string{},
		Steps:           []string{"Given a user", "When they log in", "Then they see the dashboard"},
		ExpectedOutcome: "Dashboard shown",
		DateCreated:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func ptr[T any](v T) *T { return &v }

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty workspace", func(t *testing.T) {
		s := open(t)
		reqs, err := s.Requirements(ctx)
		require.NoError(t, err)
		assert.NotNil(t, reqs)
		assert.Empty(t, reqs)

		cases, err := s.TestCases(ctx)
		require.NoError(t, err)
		assert.NotNil(t, cases)
		assert.Empty(t, cases)
	})

	t.Run("commit preserves order", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx,
			[]workflow.Requirement{requirement("REQ-002"), requirement("REQ-001")},
			[]workflow.TestCase{testCase("TC-2", "REQ-002"), testCase("TC-1", "REQ-001")}))

		reqs, err := s.Requirements(ctx)
		require.NoError(t, err)
		require.Len(t, reqs, 2)
		assert.Equal(t, "REQ-002", reqs[0].ID)
		assert.Equal(t, requirement("REQ-001"), reqs[1])

		cases, err := s.TestCases(ctx)
		require.NoError(t, err)
		require.Len(t, cases, 2)
		assert.Equal(t, "TC-2", cases[0].ID)
		assert.True(t, cases[1].DateCreated.Equal(testCase("TC-1", "REQ-001").DateCreated))
	})

	t.Run("commit is all or nothing", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")},
			[]workflow.TestCase{testCase("TC-1", "REQ-001")}))

		err := s.Commit(ctx,
			[]workflow.Requirement{requirement("REQ-009")},
			[]workflow.TestCase{testCase("TC-9", "REQ-009"), testCase("TC-1", "REQ-009")})
		assert.ErrorIs(t, err, ErrConflict)

		reqs, err := s.Requirements(ctx)
		require.NoError(t, err)
		assert.Len(t, reqs, 1, "REQ-009 not committed")

		cases, err := s.TestCases(ctx)
		require.NoError(t, err)
		assert.Len(t, cases, 1)
	})

	t.Run("commit rejects repeats within a batch", func(t *testing.T) {
		s := open(t)
		err := s.Commit(ctx, []workflow.Requirement{requirement("REQ-1"), requirement("REQ-1")}, nil)
		assert.ErrorIs(t, err, ErrConflict)

		err = s.Commit(ctx, []workflow.Requirement{requirement("REQ-1")},
			[]workflow.TestCase{testCase("TC-1", "REQ-1"), testCase("TC-1", "REQ-1")})
		assert.ErrorIs(t, err, ErrConflict)

		reqs, err := s.Requirements(ctx)
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("commit rejects invalid records", func(t *testing.T) {
		s := open(t)
		bad := testCase("TC-1", "REQ-001")
		bad.Tags = nil
		err := s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")}, []workflow.TestCase{bad})
		require.Error(t, err)

		reqs, err := s.Requirements(ctx)
		require.NoError(t, err)
		assert.Empty(t, reqs)
	})

	t.Run("replace", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")},
			[]workflow.TestCase{testCase("TC-1", "REQ-001")}))
		require.NoError(t, s.Replace(ctx, []workflow.Requirement{requirement("REQ-001"), requirement("REQ-002")},
			[]workflow.TestCase{testCase("TC-5", "REQ-002")}))

		reqs, err := s.Requirements(ctx)
		require.NoError(t, err)
		assert.Len(t, reqs, 2)

		cases, err := s.TestCases(ctx)
		require.NoError(t, err)
		require.Len(t, cases, 1)
		assert.Equal(t, "TC-5", cases[0].ID)
	})

	t.Run("get and patch", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")},
			[]workflow.TestCase{testCase("TC-1", "REQ-001")}))

		_, err := s.TestCase(ctx, "TC-404")
		assert.ErrorIs(t, err, ErrNotFound)

		updated, err := s.PatchTestCase(ctx, "TC-1", workflow.TestCasePatch{
			Title:    ptr("Verify login with SSO"),
			Priority: ptr(workflow.PriorityCritical),
		})
		require.NoError(t, err)
		assert.Equal(t, "Verify login with SSO", updated.Title)
		assert.Equal(t, workflow.PriorityCritical, updated.Priority)
		assert.Equal(t, "REQ-001", updated.RequirementID)

		got, err := s.TestCase(ctx, "TC-1")
		require.NoError(t, err)
		assert.Equal(t, "Verify login with SSO", got.Title)
		assert.Equal(t, testCase("TC-1", "REQ-001").Steps, got.Steps)

		_, err = s.PatchTestCase(ctx, "TC-1", workflow.TestCasePatch{Steps: []string{}})
		assert.Error(t, err, "patch may not empty the steps")
		_, err = s.PatchTestCase(ctx, "TC-404", workflow.TestCasePatch{Title: ptr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bulk update", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")},
			[]workflow.TestCase{testCase("TC-1", "REQ-001"), testCase("TC-2", "REQ-001"), testCase("TC-3", "REQ-001")}))

		updated, err := s.BulkUpdate(ctx, []string{"TC-3", "TC-1"}, workflow.BulkUpdate{
			Status: ptr(workflow.StatusActive),
			Tags:   &workflow.TagUpdate{Mode: workflow.TagModeAppend, Values: []string{"Smoke", "Login"}},
		})
		require.NoError(t, err)
		require.Len(t, updated, 2)
		assert.Equal(t, "TC-3", updated[0].ID)
		assert.Equal(t, []string{"Login", "Smoke"}, updated[0].Tags)

		cases, err := s.TestCases(ctx)
		require.NoError(t, err)
		assert.Equal(t, workflow.StatusActive, cases[0].Status)
		assert.Equal(t, workflow.StatusDraft, cases[1].Status)
		assert.Equal(t, workflow.StatusActive, cases[2].Status)

		_, err = s.BulkUpdate(ctx, []string{"TC-1", "TC-404"}, workflow.BulkUpdate{Status: ptr(workflow.StatusCompleted)})
		assert.ErrorIs(t, err, ErrNotFound)
		got, err := s.TestCase(ctx, "TC-1")
		require.NoError(t, err)
		assert.Equal(t, workflow.StatusActive, got.Status, "failed bulk update changes nothing")

		_, err = s.BulkUpdate(ctx, []string{"TC-1"}, workflow.BulkUpdate{Status: ptr(workflow.Status("Lost"))})
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")},
			[]workflow.TestCase{testCase("TC-1", "REQ-001"), testCase("TC-2", "REQ-001")}))

		require.NoError(t, s.DeleteTestCase(ctx, "TC-2"))
		assert.ErrorIs(t, s.DeleteTestCase(ctx, "TC-2"), ErrNotFound)

		cases, err := s.TestCases(ctx)
		require.NoError(t, err)
		require.Len(t, cases, 1)
		assert.Equal(t, "TC-1", cases[0].ID)
	})
}
