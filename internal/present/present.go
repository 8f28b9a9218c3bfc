// Package present shapes a finished summarization run for people: a
// preview of the input, the final summary, the download artifact and the
// export formats.
package present

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Yates-Labs/precis/internal/pipeline"
)

const (
	// PreviewLength is the number of characters of the input kept in a preview.
	PreviewLength = 1000

	// DownloadFilename is the name offered for the summary download.
	DownloadFilename = "summary.txt"

	// DownloadMIME is the content type of the summary download.
	DownloadMIME = "text/plain"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatText ExportFormat = "text"
	FormatJSON ExportFormat = "json"
)

// Result is what a run hands to the presentation layer.
type Result struct {
	OriginalTextPreview string         `json:"original_text_preview"`
	FinalSummary        string         `json:"final_summary"`
	Model               string         `json:"model,omitempty"`
	Stats               pipeline.Stats `json:"stats"`
}

// NewResult builds a Result from the raw input and the pipeline output.
func NewResult(raw, model string, summary *pipeline.Summary) Result {
	r := Result{
		OriginalTextPreview: Preview(raw),
		Model:               model,
	}
	if summary != nil {
		r.FinalSummary = summary.Text
		r.Stats = summary.Stats
	}
	return r
}

// Preview returns the first PreviewLength characters of text, followed by
// "..." when anything was cut.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}

// Export writes the result in the given format (text or json).
func Export(r Result, format string, w io.Writer) error {
	switch ExportFormat(strings.ToLower(format)) {
	case FormatText:
		return WriteDownload(w, r)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(r)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: text, json)", format)
	}
}

// WriteDownload writes the summary.txt artifact: the final summary and a
// trailing newline.
func WriteDownload(w io.Writer, r Result) error {
	text := r.FinalSummary
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}
