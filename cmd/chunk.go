package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/precis/internal/chunk"
	"github.com/Yates-Labs/precis/internal/config"
	"github.com/Yates-Labs/precis/internal/orchestrator"
	"github.com/Yates-Labs/precis/internal/present"
)

var chunkFlags struct {
	text      string
	chunkSize int
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [file|-]",
	Short: "Show how a document would be chunked",
	Long: `Split a document into chunks without calling any model and print one row
per chunk:
- Chunk index
- Length in characters
- Characters of overlap with the previous chunk
- Start of the chunk

Examples:
  precis chunk report.pdf
  precis chunk notes.txt --chunk-size 800`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().StringVar(&chunkFlags.text, "text", "", "Text to chunk instead of a file")
	chunkCmd.Flags().IntVar(&chunkFlags.chunkSize, "chunk-size", 0, fmt.Sprintf("Characters per chunk (%d-%d)", config.MinChunkSize, config.MaxChunkSize))
}

func runChunk(cmd *cobra.Command, args []string) error {
	ctx, stop := runContext(cmd)
	defer stop()

	req, err := buildRequest(cmd.InOrStdin(), args, chunkFlags.text)
	if err != nil {
		return err
	}
	req.ChunkSize = chunkFlags.chunkSize

	orch, err := orchestrator.New(cfg, orchestrator.WithLogger(logger))
	if err != nil {
		return err
	}

	raw, chunks, err := orch.Prepare(ctx, req)
	if err != nil {
		return err
	}

	outputChunkTable(cmd.OutOrStdout(), chunks, len([]rune(raw)))
	return nil
}

func outputChunkTable(w io.Writer, chunks []chunk.Chunk, totalChars int) {
	// Column widths
	const (
		indexWidth   = 8
		lengthWidth  = 10
		overlapWidth = 10
		previewWidth = 52
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(present.HeaderColor).
		Bold(true).
		Padding(0, 1)

	borderStyle := lipgloss.NewStyle().Foreground(present.BorderColor)

	headers := []string{
		headerStyle.Width(indexWidth).Render("CHUNK"),
		headerStyle.Width(lengthWidth).Render("CHARS"),
		headerStyle.Width(overlapWidth).Render("OVERLAP"),
		headerStyle.Width(previewWidth).Render("STARTS WITH"),
	}
	fmt.Fprintln(w, strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", indexWidth),
		strings.Repeat("─", lengthWidth),
		strings.Repeat("─", overlapWidth),
		strings.Repeat("─", previewWidth),
	}
	fmt.Fprintln(w, borderStyle.Render(strings.Join(separatorParts, "┼")))

	indexStyle := lipgloss.NewStyle().
		Foreground(present.AccentColor).
		Padding(0, 1).
		Width(indexWidth)

	numStyle := lipgloss.NewStyle().
		Foreground(present.NumberColor).
		Padding(0, 1).
		Width(lengthWidth).
		Align(lipgloss.Right)

	previewStyle := lipgloss.NewStyle().
		Foreground(present.TextColor).
		Padding(0, 1).
		Width(previewWidth)

	for _, c := range chunks {
		cells := []string{
			indexStyle.Render(fmt.Sprintf("%d", c.Index)),
			numStyle.Render(fmt.Sprintf("%d", c.Len())),
			numStyle.Width(overlapWidth).Render(fmt.Sprintf("%d", c.OverlapLength)),
			previewStyle.Render(startOf(c.Content, previewWidth-5)),
		}
		fmt.Fprintln(w, strings.Join(cells, borderStyle.Render("│")))
	}

	fmt.Fprintln(w)
	summaryStyle := lipgloss.NewStyle().
		Foreground(present.SummaryColor).
		Italic(true)
	fmt.Fprintln(w, summaryStyle.Render(fmt.Sprintf("Total: %d chunks from %d characters", len(chunks), totalChars)))
}

// startOf returns the first n characters of s on a single line.
func startOf(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
