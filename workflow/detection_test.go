package workflow

import (
	"strings"
	"testing"
)

func TestClassifyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
		want InputVariant
	}{
		{"user story", "As a user, I want to log in.", VariantGeneral},
		{"empty", "", VariantGeneral},
		{"yaml openapi", "openapi: 3.0.0\ninfo:\n  title: Pets", VariantAPISpec},
		{"yaml swagger", "swagger: \"2.0\"\n", VariantAPISpec},
		{"paths after prose", "Pet store API\n\npaths:\n  /pets:\n    get: {}", VariantAPISpec},
		{"json openapi", "{\n  \"openapi\": \"3.1.0\",\n  \"paths\": {}\n}", VariantAPISpec},
		{"json compact", `{"swagger":"2.0"}`, VariantAPISpec},
		{"indented yaml key is not top level", "notes:\n  paths: many", VariantGeneral},
		{"key mid-line", "The info: section describes the product.", VariantGeneral},
		{"prefix word", "information: stored for 7 years", VariantGeneral},
		{"quoted word in prose", `The "paths" are configured later.`, VariantGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyInput(tt.text); got != tt.want {
				t.Errorf("ClassifyInput() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyInput_LongLines(t *testing.T) {
	body := strings.Repeat(`"/pets/{id}":{"get":{}},`, 100_000)
	minified := `{"openapi":"3.0.0","paths":{` + body + `"/":{}}}`
	if got := ClassifyInput(minified); got != VariantAPISpec {
		t.Errorf("minified %d byte document = %v, want api-spec", len(minified), got)
	}

	afterLongProse := strings.Repeat("word ", 300_000) + "\npaths:\n  /pets: {}"
	if got := ClassifyInput(afterLongProse); got != VariantAPISpec {
		t.Errorf("key after a long line = %v, want api-spec", got)
	}
}

func TestVariantForSource(t *testing.T) {
	if got := VariantForSource(SourceAPISpec); got != VariantAPISpec {
		t.Errorf("VariantForSource(API Specification) = %v", got)
	}
	for _, src := range []Source{SourceDocumentUpload, SourceManualEntry, SourceIssueTracker} {
		if got := VariantForSource(src); got != VariantGeneral {
			t.Errorf("VariantForSource(%s) = %v, want general", src, got)
		}
	}
}

func TestInputVariant_String(t *testing.T) {
	if VariantGeneral.String() != "general" || VariantAPISpec.String() != "api-spec" {
		t.Errorf("unexpected names %q %q", VariantGeneral, VariantAPISpec)
	}
}
