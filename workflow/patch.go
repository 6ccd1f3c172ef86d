package workflow

// TestCasePatch is a partial overwrite of the fields an assistant may
// change. Nil fields are left untouched by Apply. Identity, linkage,
// status, source, compliance and creation date have no field here and so
// cannot be changed through a patch.
type TestCasePatch struct {
	Title           *string   `json:"title,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Steps           []string  `json:"steps,omitempty"`
	ExpectedOutcome *string   `json:"expectedOutcome,omitempty"`
	Priority        *Priority `json:"priority,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TestCasePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Steps == nil &&
		p.ExpectedOutcome == nil && p.Priority == nil && p.Tags == nil
}

// Fields lists the JSON names of the fields the patch sets.
func (p TestCasePatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Steps != nil {
		fields = append(fields, "steps")
	}
	if p.ExpectedOutcome != nil {
		fields = append(fields, "expectedOutcome")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Tags != nil {
		fields = append(fields, "tags")
	}
	return fields
}

// Apply returns a copy of tc with the patch's fields overwritten.
func (p TestCasePatch) Apply(tc TestCase) TestCase {
	out := tc
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Steps != nil {
		out.Steps = append([]string(nil), p.Steps...)
	}
	if p.ExpectedOutcome != nil {
		out.ExpectedOutcome = *p.ExpectedOutcome
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	return out
}
