package workflow

import "fmt"

// TagMode controls how bulk-edited tags combine with existing ones.
type TagMode string

const (
	TagModeAppend    TagMode = "append"
	TagModeOverwrite TagMode = "overwrite"
)

// TagUpdate is the tag part of a bulk edit.
type TagUpdate struct {
	Mode   TagMode  `json:"mode"`
	Values []string `json:"values"`
}

// BulkUpdate changes status, priority and tags across many test cases.
// Nil fields are left alone.
type BulkUpdate struct {
	Status   *Status    `json:"status,omitempty"`
	Priority *Priority  `json:"priority,omitempty"`
	Tags     *TagUpdate `json:"tags,omitempty"`
}

// Validate rejects unknown enum values and empty tag updates.
func (u BulkUpdate) Validate() error {
	if u.Status != nil && !u.Status.IsValid() {
		return fmt.Errorf("invalid status %q", *u.Status)
	}
	if u.Priority != nil && !u.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q", *u.Priority)
	}
	if u.Tags != nil {
		switch u.Tags.Mode {
		case TagModeAppend, TagModeOverwrite:
		default:
			return fmt.Errorf("invalid tag mode %q", u.Tags.Mode)
		}
		if len(u.Tags.Values) == 0 {
			return fmt.Errorf("tag update has no values")
		}
	}
	return nil
}

// ApplyBulkUpdate returns a copy of cases with update applied to every case
// whose id is in ids. Cases not selected are returned unchanged.
func ApplyBulkUpdate(cases []TestCase, ids []string, update BulkUpdate) []TestCase {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	out := make([]TestCase, len(cases))
	for i, tc := range cases {
		if !selected[tc.ID] {
			out[i] = tc
			continue
		}
		out[i] = update.apply(tc)
	}
	return out
}

func (u BulkUpdate) apply(tc TestCase) TestCase {
	if u.Status != nil {
		tc.Status = *u.Status
	}
	if u.Priority != nil {
		tc.Priority = *u.Priority
	}
	if u.Tags != nil {
		if u.Tags.Mode == TagModeOverwrite {
			tc.Tags = dedupe(u.Tags.Values)
		} else {
			tc.Tags = dedupe(append(append([]string(nil), tc.Tags...), u.Tags.Values...))
		}
	}
	return tc
}

// dedupe removes repeated strings, keeping the first occurrence.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
