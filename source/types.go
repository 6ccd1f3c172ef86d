// Package source turns requirement documents on disk into the single block
// of text the generation pipeline consumes.
package source

import (
	"errors"
	"strings"

	"github.com/c360studio/casegen/workflow"
)

// DocumentSeparator joins the text of consecutive documents.
const DocumentSeparator = "\n\n--- (New Document) ---\n\n"

// ErrUnsupported is returned by a parser for a file type it cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// Document represents a parsed document with its content and metadata.
type Document struct {
	// ID is the document identifier, derived from the file name and content.
	ID string `json:"id"`

	// Filename is the original filename.
	Filename string `json:"filename"`

	// MimeType is the type the document was parsed as.
	MimeType string `json:"mime_type"`

	// Content is the raw document content, or extracted text for binary formats.
	Content string `json:"content"`

	// Frontmatter contains parsed YAML frontmatter if present.
	Frontmatter map[string]any `json:"frontmatter,omitempty"`

	// Body is the content without frontmatter. This is what gets sent
	// for extraction.
	Body string `json:"body"`
}

// HasFrontmatter returns true if the document has parsed frontmatter.
func (d *Document) HasFrontmatter() bool {
	return len(d.Frontmatter) > 0
}

// Title returns the frontmatter title, if any.
func (d *Document) Title() string {
	if t, ok := d.Frontmatter["title"].(string); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

// DeclaredSource returns the source named by a `source:` frontmatter key.
// Unknown labels are ignored.
func (d *Document) DeclaredSource() (workflow.Source, bool) {
	label, ok := d.Frontmatter["source"].(string)
	if !ok {
		return "", false
	}
	src, err := workflow.ParseSource(label)
	if err != nil {
		return "", false
	}
	return src, true
}

// Join concatenates document bodies with DocumentSeparator.
func Join(docs []*Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Body)
	}
	return strings.Join(parts, DocumentSeparator)
}
