package source

import (
	"testing"

	"github.com/c360studio/casegen/workflow"
	"github.com/stretchr/testify/assert"
)

func TestDocument_DeclaredSource(t *testing.T) {
	tests := []struct {
		name        string
		frontmatter map[string]any
		want        workflow.Source
		wantOK      bool
	}{
		{"none", nil, "", false},
		{"canonical label", map[string]any{"source": "API Specification"}, workflow.SourceAPISpec, true},
		{"alias", map[string]any{"source": "manual"}, workflow.SourceManualEntry, true},
		{"unknown label", map[string]any{"source": "fax"}, "", false},
		{"not a string", map[string]any{"source": 3}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Document{Frontmatter: tt.frontmatter}
			got, ok := d.DeclaredSource()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocument_Title(t *testing.T) {
	assert.Equal(t, "", (&Document{}).Title())
	assert.Equal(t, "Login", (&Document{Frontmatter: map[string]any{"title": "  Login "}}).Title())
}

func TestJoin(t *testing.T) {
	docs := []*Document{{Body: "first"}, {Body: "second"}, {Body: "third"}}
	assert.Equal(t,
		"first\n\n--- (New Document) ---\n\nsecond\n\n--- (New Document) ---\n\nthird",
		Join(docs))

	assert.Equal(t, "only", Join([]*Document{{Body: "only"}}))
	assert.Equal(t, "", Join(nil))
}
