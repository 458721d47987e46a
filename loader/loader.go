// Package loader implements the Document Loader: it turns a file on disk
// into plain extracted text, dispatching by extension to a format-specific
// extractor. The PDF and PPTX extractors return page/slide-marked text;
// plain-text and DOCX content carries no such markers. Nothing here
// chunks, sanitizes, or scores the result — those are later pipeline stages.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vexrag/vexrag/errs"
)

// SupportedExtensions lists every file extension the Document Loader accepts.
var SupportedExtensions = map[string]bool{
	".md": true, ".py": true, ".ts": true, ".js": true, ".json": true,
	".txt": true, ".sh": true, ".yml": true, ".yaml": true,
	".pdf": true, ".docx": true, ".pptx": true,
}

// Document is the raw, extracted text of a single file plus its identity.
type Document struct {
	Path    string
	Content string
	Format  string // extension without the leading dot
}

// Loader dispatches to the format-specific extractor for a path.
type Loader struct{}

// New creates a Document Loader.
func New() *Loader { return &Loader{} }

// Load reads path and returns its extracted text. It returns an
// UnsupportedFormat error for extensions outside SupportedExtensions, a
// DecodeFailure error if the format-specific extractor fails, and an
// EmptyDocument error if extraction produced no non-whitespace text.
func (l *Loader) Load(ctx context.Context, path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtensions[ext] {
		return nil, errs.New(errs.UnsupportedFormat, "loader", fmt.Errorf("unsupported extension %q", ext))
	}

	var content string
	var err error
	switch ext {
	case ".pdf":
		content, err = loadPDF(path)
	case ".docx":
		content, err = loadDOCX(path)
	case ".pptx":
		content, err = loadPPTX(path)
	default:
		content, err = loadPlainText(path)
	}
	if err != nil {
		return nil, errs.New(errs.DecodeFailure, "loader", fmt.Errorf("%s: %w", path, err))
	}

	if strings.TrimSpace(content) == "" {
		return nil, errs.New(errs.EmptyDocument, "loader", fmt.Errorf("%s produced no extractable text", path))
	}

	return &Document{Path: path, Content: content, Format: strings.TrimPrefix(ext, ".")}, nil
}

func loadPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return string(data), nil
}
