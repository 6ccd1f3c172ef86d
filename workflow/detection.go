package workflow

import "strings"

// InputVariant selects which prompt family handles a document.
type InputVariant int

const (
	// VariantGeneral is prose requirements: user stories, PRDs, tickets.
	VariantGeneral InputVariant = iota
	// VariantAPISpec is an OpenAPI or Swagger document. The extraction unit
	// becomes the endpoint rather than the requirement.
	VariantAPISpec
)

func (v InputVariant) String() string {
	if v == VariantAPISpec {
		return "api-spec"
	}
	return "general"
}

// apiSpecKeys are top-level keys that mark an API specification when they
// open a line, either bare (YAML) or quoted (JSON).
var apiSpecKeys = []string{"openapi", "swagger", "paths", "components", "servers", "info"}

// ClassifyInput decides whether text is an API specification. Detection is
// deterministic: any line starting with a known top-level key wins. Lines
// have no length limit, so minified JSON of any size is classified.
func ClassifyInput(text string) InputVariant {
	for line := range strings.Lines(text) {
		if isAPISpecLine(line) {
			return VariantAPISpec
		}
	}
	return VariantGeneral
}

// VariantForSource maps a provenance label to the generation variant.
func VariantForSource(source Source) InputVariant {
	if source == SourceAPISpec {
		return VariantAPISpec
	}
	return VariantGeneral
}

func isAPISpecLine(line string) bool {
	// JSON documents are usually indented one level, so leading
	// whitespace is tolerated for the quoted form only.
	trimmed := strings.TrimLeft(line, " \t{")
	for _, key := range apiSpecKeys {
		if strings.HasPrefix(line, key+":") {
			return true
		}
		if strings.HasPrefix(trimmed, `"`+key+`"`) {
			rest := strings.TrimLeft(trimmed[len(key)+2:], " \t")
			if strings.HasPrefix(rest, ":") {
				return true
			}
		}
	}
	return false
}
