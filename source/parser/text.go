package parser

import (
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/c360studio/casegen/source"
)

// TextParser passes plain text through unchanged. It also serves XML, JSON
// and YAML files, which are sent to extraction verbatim so API
// specifications keep their structure.
type TextParser struct{}

// NewTextParser creates a new plain text parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse returns the content as the body. Content that is not valid UTF-8
// is rejected.
func (p *TextParser) Parse(filename string, content []byte) (*source.Document, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%s is not valid UTF-8 text", filepath.Base(filename))
	}
	str := string(content)
	return &source.Document{
		ID:       GenerateDocID("txt", filename, content),
		Filename: filepath.Base(filename),
		Content:  str,
		Body:     str,
	}, nil
}

// CanParse returns true if this parser can handle the given MIME type.
func (p *TextParser) CanParse(mimeType string) bool {
	switch mimeType {
	case "text/plain", "application/xml", "text/xml", "application/json", "application/yaml", "text/yaml":
		return true
	default:
		return false
	}
}

// MimeType returns the primary MIME type for this parser.
func (p *TextParser) MimeType() string {
	return "text/plain"
}
