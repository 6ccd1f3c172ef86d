// Package parser converts requirement documents of various formats into
// source.Document values.
package parser

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/c360studio/casegen/source"
)

// Parser defines the interface for document parsers.
type Parser interface {
	// Parse parses a document and returns structured data.
	Parse(filename string, content []byte) (*source.Document, error)

	// CanParse returns true if this parser handles the given MIME type.
	CanParse(mimeType string) bool

	// MimeType returns the primary MIME type for this parser.
	MimeType() string
}

// Registry manages document parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // keyed by primary MIME type
}

// NewRegistry creates a new parser registry with the default parsers.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	r.Register(NewMarkdownParser())
	r.Register(NewTextParser())
	r.Register(NewHTMLParser())
	r.Register(NewPDFParser())

	return r
}

// Register adds a parser to the registry, replacing any parser with the
// same primary MIME type.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.MimeType()] = p
}

// GetByMimeType returns a parser for the given MIME type, or nil.
func (r *Registry) GetByMimeType(mimeType string) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.parsers[mimeType]; ok {
		return p
	}

	// Fall back to secondary types, in a stable order.
	keys := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if r.parsers[k].CanParse(mimeType) {
			return r.parsers[k]
		}
	}
	return nil
}

// GetByExtension returns a parser for a file based on its extension.
func (r *Registry) GetByExtension(filename string) Parser {
	return r.GetByMimeType(MimeTypeFromExtension(filepath.Ext(filename)))
}

// Parse parses a document using the parser for its extension. Files with
// no matching parser return an error wrapping source.ErrUnsupported.
func (r *Registry) Parse(filename string, content []byte) (*source.Document, error) {
	p := r.GetByExtension(filename)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", source.ErrUnsupported, filepath.Base(filename))
	}
	doc, err := p.Parse(filename, content)
	if err != nil {
		return nil, err
	}
	doc.MimeType = p.MimeType()
	return doc, nil
}

// ListMimeTypes returns all registered primary MIME types, sorted.
func (r *Registry) ListMimeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.parsers))
	for t := range r.parsers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// SupportedExtensions lists the file extensions the default registry reads.
func SupportedExtensions() []string {
	return []string{".md", ".markdown", ".txt", ".xml", ".json", ".yaml", ".yml", ".html", ".htm", ".pdf"}
}

// MimeTypeFromExtension returns the MIME type for a file extension.
func MimeTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", ".text":
		return "text/plain"
	case ".xml":
		return "application/xml"
	case ".html", ".htm":
		return "text/html"
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
