package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCaseShape() *Schema {
	return Array("test cases", Object("test case",
		Required("id", String("unique id")),
		Required("priority", Enum("priority", "Critical", "High", "Medium", "Low")),
		Required("tags", StringArray("tags").NonEmpty()),
		Optional("compliance", StringArray("standards")),
	))
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPaths []string
	}{
		{
			name: "valid",
			raw:  `[{"id": "TC-1", "priority": "High", "tags": ["Login"]}]`,
		},
		{
			name: "empty array",
			raw:  `[]`,
		},
		{
			name:      "not an array",
			raw:       `{"id": "TC-1"}`,
			wantPaths: []string{"$"},
		},
		{
			name:      "missing required and bad enum",
			raw:       `[{"priority": "Urgent", "tags": ["x"]}]`,
			wantPaths: []string{"$[0]", "$[0].priority"},
		},
		{
			name:      "null counts as missing",
			raw:       `[{"id": null, "priority": "Low", "tags": ["x"]}]`,
			wantPaths: []string{"$[0]"},
		},
		{
			name:      "empty tags",
			raw:       `[{"id": "a", "priority": "Low", "tags": []}]`,
			wantPaths: []string{"$[0].tags"},
		},
		{
			name:      "wrong item type in nested array",
			raw:       `[{"id": "a", "priority": "Low", "tags": [1]}]`,
			wantPaths: []string{"$[0].tags[0]"},
		},
		{
			name:      "optional field with wrong type",
			raw:       `[{"id": "a", "priority": "Low", "tags": ["x"], "compliance": "HIPAA"}]`,
			wantPaths: []string{"$[0].compliance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testCaseShape().Validate(decode(t, tt.raw))
			if len(tt.wantPaths) == 0 {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			var paths []string
			for _, v := range verr.Violations {
				paths = append(paths, v.Path)
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}

func TestValidate_Numbers(t *testing.T) {
	s := Object("pair", Required("similarity", Number("score", 80, 100)))

	assert.NoError(t, s.Validate(decode(t, `{"similarity": 80}`)))
	assert.Error(t, s.Validate(decode(t, `{"similarity": 79.5}`)))
	assert.Error(t, s.Validate(decode(t, `{"similarity": 101}`)))
	assert.Error(t, s.Validate(decode(t, `{"similarity": "90"}`)))

	integer := &Schema{Type: TypeInteger}
	assert.NoError(t, integer.Validate(float64(3)))
	assert.Error(t, integer.Validate(3.5))

	assert.Error(t, Boolean("flag").Validate("true"))
}

func TestValidationError_Message(t *testing.T) {
	s := Array("ids", String("id"))
	err := s.Validate(decode(t, `[1, 2, 3, 4, 5, 6, 7]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$[0]: expected string, got number")
	assert.Contains(t, err.Error(), "and 2 more")
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(testCaseShape())
	require.NoError(t, err)

	raw := string(data)
	assert.True(t, strings.HasPrefix(raw, `{"type":"array"`))
	// Declaration order is preserved.
	assert.Less(t, strings.Index(raw, `"id"`), strings.Index(raw, `"priority"`))
	assert.Less(t, strings.Index(raw, `"priority"`), strings.Index(raw, `"tags"`))
	assert.Contains(t, raw, `"required":["id","priority","tags"]`)
	assert.Contains(t, raw, `"minItems":1`)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic), "output is valid JSON")
}

func TestMarshalJSON_Bounds(t *testing.T) {
	data, err := json.Marshal(Number("score", 80, 100))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"number","description":"score","minimum":80,"maximum":100}`, string(data))
}

func TestDescribe(t *testing.T) {
	got := testCaseShape().Describe()
	want := strings.Join([]string{
		"array - test cases",
		"  each item: object - test case",
		"    id (required): string - unique id",
		"    priority (required): string one of [Critical, High, Medium, Low] - priority",
		"    tags (required): array - tags",
		"      each item: string",
		"    compliance: array - standards",
		"      each item: string",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestPropertyNames_MapOnlyEntries(t *testing.T) {
	s := Object("x", Required("b", String("")))
	s.Properties["a"] = String("")
	assert.Equal(t, []string{"b", "a"}, s.PropertyNames())
}
