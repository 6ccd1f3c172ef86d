// Package storage persists the workspace: committed requirements, their
// test cases and the completion call log.
package storage

import (
	"context"
	"fmt"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"
)

// Store is a workspace backend. Every mutating operation is atomic: either
// all of its records change or none do.
type Store interface {
	// Commit appends a generation run's requirements and test cases. Ids
	// already in the workspace, or repeated within the batch, fail the
	// whole commit with ErrConflict.
	Commit(ctx context.Context, reqs []workflow.Requirement, cases []workflow.TestCase) error

	// Replace swaps the whole workspace for the given records.
	Replace(ctx context.Context, reqs []workflow.Requirement, cases []workflow.TestCase) error

	// Requirements returns committed requirements in commit order.
	Requirements(ctx context.Context) ([]workflow.Requirement, error)

	// TestCases returns committed test cases in commit order.
	TestCases(ctx context.Context) ([]workflow.TestCase, error)

	// TestCase returns one test case or ErrNotFound.
	TestCase(ctx context.Context, id string) (*workflow.TestCase, error)

	// PatchTestCase applies patch to a test case and returns the result.
	PatchTestCase(ctx context.Context, id string, patch workflow.TestCasePatch) (*workflow.TestCase, error)

	// BulkUpdate applies update to every listed test case and returns the
	// updated records. Unknown ids fail with ErrNotFound.
	BulkUpdate(ctx context.Context, ids []string, update workflow.BulkUpdate) ([]workflow.TestCase, error)

	// DeleteTestCase removes a test case, e.g. the discarded half of a
	// duplicate pair.
	DeleteTestCase(ctx context.Context, id string) error

	// RecordCall appends to the completion call log.
	RecordCall(ctx context.Context, record *llm.CallRecord) error

	Close() error
}

// workspace is the in-memory form of a store's contents. Stores without
// multi-record transactions load it, mutate it and write it back whole.
type workspace struct {
	Requirements []workflow.Requirement `json:"requirements"`
	TestCases    []workflow.TestCase    `json:"testCases"`
}

func (w *workspace) commit(reqs []workflow.Requirement, cases []workflow.TestCase) error {
	if err := validateBatch(reqs, cases); err != nil {
		return err
	}
	reqIDs := make(map[string]bool, len(w.Requirements))
	for _, r := range w.Requirements {
		reqIDs[r.ID] = true
	}
	for _, r := range reqs {
		if reqIDs[r.ID] {
			return fmt.Errorf("requirement %q: %w", r.ID, ErrConflict)
		}
	}
	for _, tc := range cases {
		if w.index(tc.ID) >= 0 {
			return fmt.Errorf("test case %q: %w", tc.ID, ErrConflict)
		}
	}
	w.Requirements = append(w.Requirements, reqs...)
	w.TestCases = append(w.TestCases, cases...)
	return nil
}

func (w *workspace) index(id string) int {
	for i, tc := range w.TestCases {
		if tc.ID == id {
			return i
		}
	}
	return -1
}

func (w *workspace) patch(id string, p workflow.TestCasePatch) (*workflow.TestCase, error) {
	i := w.index(id)
	if i < 0 {
		return nil, fmt.Errorf("test case %q: %w", id, ErrNotFound)
	}
	updated, err := patched(w.TestCases[i], p)
	if err != nil {
		return nil, err
	}
	w.TestCases[i] = updated
	return &updated, nil
}

func (w *workspace) bulk(ids []string, u workflow.BulkUpdate) ([]workflow.TestCase, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if w.index(id) < 0 {
			return nil, fmt.Errorf("test case %q: %w", id, ErrNotFound)
		}
	}
	w.TestCases = workflow.ApplyBulkUpdate(w.TestCases, ids, u)
	return selectCases(w.TestCases, ids), nil
}

func (w *workspace) remove(id string) error {
	i := w.index(id)
	if i < 0 {
		return fmt.Errorf("test case %q: %w", id, ErrNotFound)
	}
	w.TestCases = append(w.TestCases[:i], w.TestCases[i+1:]...)
	return nil
}

// validateBatch checks every record and rejects ids repeated in the batch.
func validateBatch(reqs []workflow.Requirement, cases []workflow.TestCase) error {
	seen := make(map[string]bool, len(reqs))
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return err
		}
		if seen[reqs[i].ID] {
			return fmt.Errorf("requirement %q repeated in batch: %w", reqs[i].ID, ErrConflict)
		}
		seen[reqs[i].ID] = true
	}
	seen = make(map[string]bool, len(cases))
	for i := range cases {
		if err := cases[i].Validate(); err != nil {
			return err
		}
		if seen[cases[i].ID] {
			return fmt.Errorf("test case %q repeated in batch: %w", cases[i].ID, ErrConflict)
		}
		seen[cases[i].ID] = true
	}
	return nil
}

// patched applies p and validates the result.
func patched(tc workflow.TestCase, p workflow.TestCasePatch) (workflow.TestCase, error) {
	if p.Priority != nil && !p.Priority.IsValid() {
		return tc, fmt.Errorf("invalid priority %q", *p.Priority)
	}
	out := p.Apply(tc)
	if err := out.Validate(); err != nil {
		return tc, err
	}
	return out, nil
}

// selectCases returns the cases named by ids, in ids order, skipping repeats.
func selectCases(cases []workflow.TestCase, ids []string) []workflow.TestCase {
	index := workflow.IndexTestCases(cases)
	seen := make(map[string]bool, len(ids))
	out := make([]workflow.TestCase, 0, len(ids))
	for _, id := range ids {
		if tc, ok := index[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, tc)
		}
	}
	return out
}
