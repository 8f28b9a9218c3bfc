// Package chunk splits raw text into overlapping, size-bounded segments.
// Splitting prefers natural boundaries (paragraphs, lines, sentences,
// whitespace) and falls back to a raw character cut only when no boundary
// fits. All sizes are measured in characters (runes), not bytes.
package chunk

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultMaxChunkSize = 1500
	DefaultOverlap      = 100
)

// sentenceEnds are tried after line breaks and before plain whitespace.
var sentenceEnds = []string{". ", "! ", "? ", "… ", "。", "！", "？"}

// separators lists split points from the largest boundary to a raw cut.
func separators() []string {
	seps := []string{"\n\n", "\n"}
	seps = append(seps, sentenceEnds...)
	return append(seps, " ", "")
}

// Chunk is one ordered segment of the input text.
type Chunk struct {
	// Content is the chunk text, including any overlap prefix.
	Content string `json:"content"`

	// Index is the zero-based position of the chunk in the text.
	Index int `json:"index"`

	// OverlapLength is the number of characters repeated from the previous chunk.
	OverlapLength int `json:"overlap_length"`
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Content)
}

// ConfigurationError reports invalid chunking parameters.
type ConfigurationError struct {
	Param  string
	Value  int
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid chunking configuration: %s=%d: %s", e.Param, e.Value, e.Reason)
}

// Splitter splits text with fixed size and overlap settings.
// A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	maxChunkSize int
	overlap      int
	pieces       textsplitter.RecursiveCharacter
}

// New validates the parameters and returns a Splitter.
func New(maxChunkSize, overlap int) (*Splitter, error) {
	if maxChunkSize <= 0 {
		return nil, &ConfigurationError{Param: "maxChunkSize", Value: maxChunkSize, Reason: "must be positive"}
	}
	if overlap < 0 {
		return nil, &ConfigurationError{Param: "overlap", Value: overlap, Reason: "must not be negative"}
	}
	if maxChunkSize <= overlap {
		return nil, &ConfigurationError{
			Param:  "maxChunkSize",
			Value:  maxChunkSize,
			Reason: fmt.Sprintf("must be greater than overlap (%d)", overlap),
		}
	}

	// Pieces leave two characters of the window free for a moved sentence
	// terminator and the whitespace that follows a piece.
	window := maxChunkSize - overlap
	pieces := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(separators()),
		textsplitter.WithChunkSize(max(window-2, 1)),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithKeepSeparator(true),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
	return &Splitter{maxChunkSize: maxChunkSize, overlap: overlap, pieces: pieces}, nil
}

// Split is a convenience wrapper around New and Splitter.Split.
func Split(text string, maxChunkSize, overlap int) ([]Chunk, error) {
	s, err := New(maxChunkSize, overlap)
	if err != nil {
		return nil, err
	}
	return s.Split(text), nil
}

// MaxChunkSize returns the configured chunk size bound.
func (s *Splitter) MaxChunkSize() int { return s.maxChunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Fits reports whether text fits in a single chunk.
func (s *Splitter) Fits(text string) bool {
	return utf8.RuneCountInString(text) <= s.maxChunkSize
}

// Split divides text into ordered chunks. Blank text yields no chunks and
// text that fits in one chunk is returned unchanged as a single chunk.
//
// Every chunk adds non-blank text of its own after the overlap prefix. A
// whitespace run too long to sit next to its neighbouring text is shortened,
// so Join reproduces the input apart from such runs.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if s.Fits(text) {
		return []Chunk{{Content: text, Index: 0}}
	}

	window := s.maxChunkSize - s.overlap
	spans := s.place(text, s.locate(text), window)

	chunks := make([]Chunk, 0, len(spans))
	var prev []rune
	for i, sp := range spans {
		overlap := min(s.overlap, len(prev))
		content := string(prev[len(prev)-overlap:]) + text[sp.start:sp.end]
		chunks = append(chunks, Chunk{Content: content, Index: i, OverlapLength: overlap})
		prev = []rune(content)
	}
	return chunks
}

// Join reassembles the original text from chunks produced by Split.
func Join(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		runes := []rune(c.Content)
		skip := min(c.OverlapLength, len(runes))
		b.WriteString(string(runes[skip:]))
	}
	return b.String()
}

// span is a byte range of the source text.
type span struct {
	start, end int
}

func (sp span) runes(text string) int {
	return utf8.RuneCountInString(text[sp.start:sp.end])
}

// locate finds the splitter's pieces in text. Pieces are trimmed and blank
// ones dropped, so the text between two spans is always whitespace.
func (s *Splitter) locate(text string) []span {
	parts, err := s.pieces.SplitText(text)
	if err != nil {
		return cutRunes(text, 0, s.pieces.ChunkSize)
	}

	spans := make([]span, 0, len(parts))
	cursor := 0
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		i := strings.Index(text[cursor:], part)
		if i < 0 {
			return append(spans, cutRunes(text, cursor, s.pieces.ChunkSize)...)
		}
		start := cursor + i
		spans = append(spans, span{start: start, end: start + len(part)})
		cursor = start + len(part)
	}
	return moveTerminators(text, spans, s.maxChunkSize-s.overlap)
}

// moveTerminators hands a sentence terminator that opens a piece back to the
// piece it ends, as long as that piece stays within window characters.
func moveTerminators(text string, spans []span, window int) []span {
	out := spans[:0]
	for _, sp := range spans {
		n := len(out)
		adjacent := n > 0 && out[n-1].end == sp.start
		if adjacent && opensWithTerminator(text[sp.start:sp.end]) && out[n-1].runes(text) < window {
			_, size := utf8.DecodeRuneInString(text[sp.start:])
			out[n-1].end += size
			sp.start += size
			for sp.start < sp.end {
				r, size := utf8.DecodeRuneInString(text[sp.start:])
				if !unicode.IsSpace(r) {
					break
				}
				sp.start += size
			}
			if sp.start == sp.end {
				continue
			}
		}
		out = append(out, sp)
	}
	return out
}

func opensWithTerminator(piece string) bool {
	for _, sep := range sentenceEnds {
		if strings.HasPrefix(piece, sep) {
			return true
		}
	}
	return false
}

// place grows each span over the whitespace around it while it stays within
// window characters. Whitespace that fits neither neighbour is dropped.
func (s *Splitter) place(text string, spans []span, window int) []span {
	if len(spans) == 0 {
		return nil
	}
	placed := make([]span, len(spans))
	copy(placed, spans)

	placed[0].start = backward(text, placed[0].start, 0, window-placed[0].runes(text))
	for i := range placed {
		limit := len(text)
		if i+1 < len(placed) {
			limit = placed[i+1].start
		}
		placed[i].end = forward(text, placed[i].end, limit, window-placed[i].runes(text))
		if i+1 < len(placed) {
			next := placed[i+1]
			placed[i+1].start = backward(text, next.start, placed[i].end, window-next.runes(text))
		}
	}
	return placed
}

// forward moves pos ahead by up to n runes without passing limit.
func forward(text string, pos, limit, n int) int {
	for ; n > 0 && pos < limit; n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}

// backward moves pos back by up to n runes without passing limit.
func backward(text string, pos, limit, n int) int {
	for ; n > 0 && pos > limit; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}

// cutRunes splits text[from:] into non-blank spans of at most n runes.
func cutRunes(text string, from, n int) []span {
	var spans []span
	for from < len(text) {
		end := forward(text, from, len(text), n)
		if strings.TrimSpace(text[from:end]) != "" {
			spans = append(spans, span{start: from, end: end})
		}
		from = end
	}
	return spans
}
