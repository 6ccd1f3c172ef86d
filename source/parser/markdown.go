package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/c360studio/casegen/source"
	"gopkg.in/yaml.v3"
)

// MarkdownParser parses markdown documents with optional YAML frontmatter.
// Frontmatter may name the document's source and title:
//
//	---
//	title: Checkout requirements
//	source: Issue Tracker
//	---
type MarkdownParser struct{}

// NewMarkdownParser creates a new markdown parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse splits frontmatter from the body. Malformed frontmatter is kept as
// part of the body.
func (p *MarkdownParser) Parse(filename string, content []byte) (*source.Document, error) {
	str := string(content)
	doc := &source.Document{
		ID:       GenerateDocID("md", filename, content),
		Filename: filepath.Base(filename),
		Content:  str,
		Body:     str,
	}

	if strings.HasPrefix(str, "---\n") || strings.HasPrefix(str, "---\r\n") {
		if frontmatter, body, err := extractFrontmatter(str); err == nil {
			doc.Frontmatter = frontmatter
			doc.Body = body
		}
	}
	return doc, nil
}

// CanParse returns true if this parser can handle the given MIME type.
func (p *MarkdownParser) CanParse(mimeType string) bool {
	return mimeType == "text/markdown" || mimeType == "text/x-markdown"
}

// MimeType returns the primary MIME type for this parser.
func (p *MarkdownParser) MimeType() string {
	return "text/markdown"
}

// extractFrontmatter parses the YAML block between the opening "---" line
// and the next "---" line, returning it with the remaining body.
func extractFrontmatter(content string) (map[string]any, string, error) {
	const delimiter = "---"

	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		return nil, content, fmt.Errorf("no closing frontmatter delimiter")
	}
	yamlContent := strings.TrimSuffix(content[start:start+closeIdx], "\r")

	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}
	body := content[min(bodyStart, len(content)):]

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &frontmatter); err != nil {
		return nil, content, fmt.Errorf("parse YAML frontmatter: %w", err)
	}
	return frontmatter, body, nil
}
