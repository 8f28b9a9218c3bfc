// Package extract turns uploaded documents into plain text.
//
// Each supported format has an Extractor; a Registry maps formats to
// extractors and detects the format of an incoming document from its name
// and, failing that, its content.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNoInput is returned when neither a file nor pasted text carries any
	// content.
	ErrNoInput = errors.New("no input: upload a file or paste text")

	// ErrUnsupportedFormat is wrapped when no extractor handles a document.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Format identifies a document format.
type Format string

const (
	FormatText     Format = "text"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
	FormatUnknown  Format = ""
)

var extensionFormats = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".log":      FormatText,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".xlsx":     FormatXLSX,
}

var mimeFormats = map[string]Format{
	"text/plain":      FormatText,
	"text/markdown":   FormatMarkdown,
	"application/pdf": FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       FormatXLSX,
}

// Document is an uploaded file held in memory.
type Document struct {
	Name string
	Data []byte
}

// ExtractionError reports a document that could not be turned into text.
type ExtractionError struct {
	Name   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Format == FormatUnknown {
		return fmt.Sprintf("extract %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("extract %q (%s): %v", e.Name, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor converts the raw bytes of one format into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// Registry maps formats to extractors. It is not safe to Register while
// other goroutines extract.
type Registry struct {
	extractors map[Format]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[Format]Extractor)}
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormatText, ExtractorFunc(extractText))
	r.Register(FormatPDF, ExtractorFunc(extractPDF))
	r.Register(FormatDOCX, ExtractorFunc(extractDOCX))
	r.Register(FormatMarkdown, ExtractorFunc(extractMarkdown))
	r.Register(FormatXLSX, ExtractorFunc(extractXLSX))
	return r
}

// Register adds or replaces the extractor for format.
func (r *Registry) Register(format Format, ex Extractor) {
	r.extractors[format] = ex
}

// Formats lists the registered formats in sorted order.
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.extractors))
	for f := range r.extractors {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}

// Extract detects the format of doc and runs its extractor.
func (r *Registry) Extract(ctx context.Context, doc Document) (string, error) {
	format := Detect(doc.Name, doc.Data)
	ex, ok := r.extractors[format]
	if !ok {
		return "", &ExtractionError{Name: doc.Name, Format: format, Err: ErrUnsupportedFormat}
	}

	text, err := ex.Extract(ctx, doc.Data)
	if err != nil {
		return "", &ExtractionError{Name: doc.Name, Format: format, Err: err}
	}
	return text, nil
}

// Detect picks a format from the file extension, falling back to content
// sniffing for unknown or missing extensions.
func Detect(name string, data []byte) Format {
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}
	return mimeFormats[detectMIME(data)]
}

// detectMIME tries the stdlib sniffer first and falls back to mimetype for
// containers such as zip-based office documents.
func detectMIME(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	mt := http.DetectContentType(data)
	if mt != "application/octet-stream" && mt != "application/zip" {
		return baseMIME(mt)
	}
	return baseMIME(mimetype.Detect(data).String())
}

func baseMIME(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// Input is what a user submits: an uploaded file, pasted text, or both.
type Input struct {
	File *Document
	Text string
}

// Acquire returns the raw text to summarize. An uploaded file takes
// precedence over pasted text; blank input yields ErrNoInput.
func Acquire(ctx context.Context, r *Registry, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if in.File != nil {
		text, err := r.Extract(ctx, *in.File)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%w: %q contains no text", ErrNoInput, in.File.Name)
		}
		return text, nil
	}

	if strings.TrimSpace(in.Text) == "" {
		return "", ErrNoInput
	}
	return in.Text, nil
}
