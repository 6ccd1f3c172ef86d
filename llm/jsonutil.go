package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// fencePattern matches a markdown code block, capturing its body.
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\s*```")
	// jsonObjectPattern matches the outermost JSON object (greedy).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// jsonArrayPattern matches the outermost JSON array (greedy).
	jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON extracts a JSON object from a completion.
// It handles markdown code blocks, line comments and trailing commas.
func ExtractJSON(content string) string {
	return extract(content, jsonObjectPattern)
}

// ExtractJSONArray extracts a JSON array from a completion.
func ExtractJSONArray(content string) string {
	return extract(content, jsonArrayPattern)
}

// ExtractValue returns the JSON text of a completion, preferring an array
// when wantArray is set and an object otherwise. Content that is already
// valid JSON is returned unchanged. Returns "" when nothing usable is found.
func ExtractValue(content string, wantArray bool) string {
	trimmed := strings.TrimSpace(content)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return trimmed
	}

	primary, secondary := jsonObjectPattern, jsonArrayPattern
	if wantArray {
		primary, secondary = jsonArrayPattern, jsonObjectPattern
	}
	if out := extract(content, primary); out != "" {
		return out
	}
	return extract(content, secondary)
}

func extract(content string, pattern *regexp.Regexp) string {
	if m := fencePattern.FindStringSubmatch(content); len(m) > 1 {
		if raw := pattern.FindString(m[1]); raw != "" {
			return cleanJSON(raw)
		}
	}
	if raw := pattern.FindString(content); raw != "" {
		return cleanJSON(raw)
	}
	return ""
}

// cleanJSON removes line comments and trailing commas, two artifacts
// models commonly produce.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting string
// values:
//
//	"url": "http://example.com" // note  →  "url": "http://example.com"
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
