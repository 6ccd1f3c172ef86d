package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c360studio/casegen/workflow"
)

// Parser parses raw file content into a Document. *parser.Registry is the
// production implementation.
type Parser interface {
	Parse(filename string, content []byte) (*Document, error)
}

// Extraction is the combined text of a set of files.
type Extraction struct {
	// Text is every document body joined with DocumentSeparator.
	Text string
	// Documents holds the parsed documents in input order, placeholders included.
	Documents []*Document
	// Unsupported lists files that could not be read as text.
	Unsupported []string
	// Source is the source every document declared in its frontmatter. It
	// is empty when documents disagree or none declared one.
	Source workflow.Source
}

// Extractor reads files and joins their text.
type Extractor struct {
	parser Parser
	logger *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an extractor that parses files with p.
func NewExtractor(p Parser, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		parser: p,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFiles reads and parses each path. A file type the parser does not
// support contributes a placeholder line instead of failing the batch; a
// read or parse failure is returned.
func (e *Extractor) ExtractFiles(ctx context.Context, paths []string) (*Extraction, error) {
	out := &Extraction{}
	declared := map[workflow.Source]bool{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		doc, err := e.parser.Parse(path, content)
		if errors.Is(err, ErrUnsupported) {
			e.logger.Warn("Unsupported file type, skipping text extraction", "file", path)
			out.Unsupported = append(out.Unsupported, path)
			doc = placeholder(path)
		} else if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if src, ok := doc.DeclaredSource(); ok {
			declared[src] = true
		}
		out.Documents = append(out.Documents, doc)
	}

	out.Text = Join(out.Documents)
	if len(declared) == 1 {
		for src := range declared {
			out.Source = src
		}
	}

	e.logger.Debug("Extracted document text",
		"files", len(paths),
		"unsupported", len(out.Unsupported),
		"chars", len(out.Text))
	return out, nil
}

// ExtractText is ExtractFiles returning only the joined text.
func (e *Extractor) ExtractText(ctx context.Context, paths []string) (string, error) {
	ext, err := e.ExtractFiles(ctx, paths)
	if err != nil {
		return "", err
	}
	return ext.Text, nil
}

func placeholder(path string) *Document {
	name := filepath.Base(path)
	text := fmt.Sprintf("[Content of '%s' cannot be read. This file type is not supported for text extraction.]", name)
	return &Document{
		ID:       "unsupported." + name,
		Filename: name,
		Content:  text,
		Body:     text,
	}
}
