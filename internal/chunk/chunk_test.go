package chunk

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var words = []string{
	"summary", "context", "model", "chunk", "overlap", "boundary", "paragraph",
	"reduce", "map", "token", "the", "a", "of", "and", "document", "pipeline",
}

// makeText builds deterministic prose of exactly n characters.
func makeText(n int, seed int64) string {
	r := rand.New(rand.NewSource(seed))
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(words[r.Intn(len(words))])
		switch r.Intn(20) {
		case 0:
			b.WriteString(". ")
		case 1:
			b.WriteString("\n")
		case 2:
			b.WriteString(".\n\n")
		default:
			b.WriteString(" ")
		}
	}
	return b.String()[:n]
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		name         string
		maxChunkSize int
		overlap      int
		param        string
	}{
		{"overlap equals size", 100, 100, "maxChunkSize"},
		{"overlap exceeds size", 100, 150, "maxChunkSize"},
		{"negative overlap", 100, -1, "overlap"},
		{"zero size", 0, 0, "maxChunkSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.maxChunkSize, tt.overlap)
			require.Error(t, err)
			assert.Nil(t, s)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %T", err)
			assert.Equal(t, tt.param, cfgErr.Param)
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	chunks, err := Split("", 1500, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	text := makeText(1499, 1)

	chunks, err := Split(text, 1500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].OverlapLength)
}

func TestSplit_ExactSizeIsSingleChunk(t *testing.T) {
	text := strings.Repeat("x", 500)

	chunks, err := Split(text, 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
}

func TestSplit_FourThousandCharacters(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 200))[:4000]
	require.Len(t, []rune(text), 4000)

	chunks, err := Split(text, 1500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, c.Len(), 1500, "chunk %d too long", i)
	}

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		tail := string(prev[len(prev)-100:])
		assert.Equal(t, 100, chunks[i].OverlapLength)
		assert.True(t, strings.HasPrefix(chunks[i].Content, tail),
			"chunk %d does not start with the tail of chunk %d", i, i-1)
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	sizes := []struct{ max, overlap int }{
		{500, 100},
		{1500, 100},
		{3000, 0},
		{200, 150},
		{64, 8},
	}

	for seed := int64(1); seed <= 20; seed++ {
		text := makeText(int(seed)*731, seed)
		for _, sz := range sizes {
			chunks, err := Split(text, sz.max, sz.overlap)
			require.NoError(t, err)
			assert.Equal(t, text, Join(chunks), "seed=%d max=%d overlap=%d", seed, sz.max, sz.overlap)
		}
	}
}

// withBlankRuns inserts long whitespace runs of the kind blank PDF pages and
// form-feed padding leave behind.
func withBlankRuns(text string, seed int64) string {
	r := rand.New(rand.NewSource(seed))
	runs := []string{
		strings.Repeat("\n", 4000),
		strings.Repeat(" ", 2500),
		strings.Repeat("\f\n", 900),
		strings.Repeat("\n\n \t", 400),
	}
	var b strings.Builder
	for _, part := range strings.SplitAfter(text, ".\n\n") {
		b.WriteString(part)
		if r.Intn(3) == 0 {
			b.WriteString(runs[r.Intn(len(runs))])
		}
	}
	return b.String()
}

func TestSplit_BoundsAndNoEmptyChunks(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		texts := []string{
			makeText(5000+int(seed)*97, seed),
			withBlankRuns(makeText(5000+int(seed)*97, seed), seed),
		}
		for _, text := range texts {
			chunks, err := Split(text, 700, 50)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				assert.LessOrEqual(t, c.Len(), 700)
				added := string([]rune(c.Content)[c.OverlapLength:])
				assert.NotEmpty(t, strings.TrimSpace(added), "chunk %d adds no new text", i)
			}
			assert.Equal(t, strings.Fields(text), strings.Fields(Join(chunks)))
		}
	}
}

func TestSplit_LongBlankRun(t *testing.T) {
	intro := "Intro sentence about the report."
	closing := "Closing remarks of the report."
	text := intro + strings.Repeat("\n", 4000) + closing

	chunks, err := Split(text, 1500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.True(t, strings.HasPrefix(chunks[0].Content, intro))
	assert.True(t, strings.HasSuffix(chunks[1].Content, closing))
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Len(), 1500)
		assert.NotEmpty(t, strings.TrimSpace(string([]rune(c.Content)[c.OverlapLength:])))
	}
	assert.Equal(t, 100, chunks[1].OverlapLength)
}

func TestSplit_BlankTextHasNoChunks(t *testing.T) {
	for _, text := range []string{" ", "\n\n\t", strings.Repeat("\n", 5000)} {
		chunks, err := Split(text, 500, 50)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	para := func(word string) string {
		return strings.TrimSpace(strings.Repeat(word+" ", 150))
	}
	p1, p2, p3 := para("one"), para("two"), para("three")
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	chunks, err := Split(text, 1000, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, p1+"\n\n", chunks[0].Content)
	assert.Equal(t, p2+"\n\n", chunks[1].Content)
	assert.Equal(t, p3, chunks[2].Content)
}

func TestSplit_PrefersSentenceOverWord(t *testing.T) {
	sentence := "The pipeline maps every chunk before it reduces the partial summaries. "
	text := strings.Repeat(sentence, 30)

	chunks, err := Split(text, 500, 0)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c.Content, ". "), "chunk should end at a sentence: %q", c.Content)
	}
}

func TestSplit_HardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("x", 1000)

	chunks, err := Split(text, 300, 50)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 3)
	for i, c := range chunks {
		assert.LessOrEqual(t, c.Len(), 300)
		if i > 0 {
			assert.Equal(t, 50, c.OverlapLength)
		}
	}
	assert.Equal(t, text, Join(chunks))
}

func TestSplit_SentenceTerminatorStaysWithItsSentence(t *testing.T) {
	text := strings.Repeat("Short sentence here. ", 40)

	chunks, err := Split(text, 200, 20)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks[1:] {
		added := string([]rune(c.Content)[c.OverlapLength:])
		assert.False(t, strings.HasPrefix(strings.TrimSpace(added), "."), "chunk starts with a terminator: %q", added)
	}
	assert.Equal(t, text, Join(chunks))
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("résumé ", 100) // 700 runes, 900 bytes

	chunks, err := Split(text, 700, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	chunks, err = Split(text, 300, 10)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Len(), 300)
	}
	assert.Equal(t, text, Join(chunks))
}

func TestSplitter_Fits(t *testing.T) {
	s, err := New(10, 2)
	require.NoError(t, err)
	assert.True(t, s.Fits("0123456789"))
	assert.False(t, s.Fits("0123456789a"))
	assert.Equal(t, 10, s.MaxChunkSize())
	assert.Equal(t, 2, s.Overlap())
}
