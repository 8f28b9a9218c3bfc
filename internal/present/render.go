package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LipGloss signature purple/pink palette
var (
	HeaderColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
	AccentColor  = lipgloss.Color("#BD93F9") // Purple
	NumberColor  = lipgloss.Color("#FF79C6") // Pink
	TextColor    = lipgloss.Color("#E9E9F4") // Light purple/white
	BorderColor  = lipgloss.Color("#6272A4") // Muted purple
	SummaryColor = lipgloss.Color("#8BE9FD") // Cyan accent
)

// Render formats a result for the terminal. width wraps the body text; zero
// leaves it unwrapped. When showPreview is set the input preview is printed
// above the summary.
func Render(r Result, width int, showPreview bool) string {
	headerStyle := lipgloss.NewStyle().Foreground(HeaderColor).Bold(true)
	borderStyle := lipgloss.NewStyle().Foreground(BorderColor)
	bodyStyle := lipgloss.NewStyle().Foreground(TextColor)
	previewStyle := lipgloss.NewStyle().Foreground(AccentColor).Italic(true)
	statsStyle := lipgloss.NewStyle().Foreground(SummaryColor).Italic(true)
	if width > 0 {
		bodyStyle = bodyStyle.Width(width)
		previewStyle = previewStyle.Width(width)
	}

	rule := borderStyle.Render(strings.Repeat("─", max(width, 40)))

	var b strings.Builder
	if showPreview {
		b.WriteString(headerStyle.Render("ORIGINAL TEXT PREVIEW"))
		b.WriteString("\n" + rule + "\n")
		b.WriteString(previewStyle.Render(r.OriginalTextPreview))
		b.WriteString("\n\n")
	}

	b.WriteString(headerStyle.Render("SUMMARY"))
	b.WriteString("\n" + rule + "\n")
	b.WriteString(bodyStyle.Render(r.FinalSummary))
	b.WriteString("\n\n")
	b.WriteString(statsStyle.Render(StatsLine(r)))
	return b.String()
}

// StatsLine is a one-line description of the work done by a run.
func StatsLine(r Result) string {
	s := r.Stats
	line := fmt.Sprintf("%d chunks, %d map calls, %d reduce calls, depth %d, %s",
		s.Chunks, s.MapCalls, s.ReduceCalls, s.Depth, s.Elapsed.Round(time.Millisecond))
	if r.Model != "" {
		line = r.Model + ": " + line
	}
	return line
}
