package llm

import (
	"fmt"
	"strings"
)

// textFence delimits user-supplied text inside prompts.
const textFence = `"""`

// MapPrompt builds the prompt for summarizing a single chunk.
func MapPrompt(text string) string {
	var b strings.Builder

	b.WriteString("Write a concise summary of the following text. ")
	b.WriteString("Keep names, numbers, dates and conclusions that matter; drop repetition.\n\n")
	b.WriteString(textFence)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n")
	b.WriteString(textFence)
	b.WriteString("\n\nCONCISE SUMMARY:")

	return b.String()
}

// ReducePrompt builds the prompt that merges partial summaries, in order,
// into one final summary.
func ReducePrompt(summaries []string) string {
	var b strings.Builder

	b.WriteString("The following are summaries of consecutive parts of one document, in order. ")
	b.WriteString("Combine them into a single concise summary of the whole document. ")
	b.WriteString("Remove overlap between parts and keep the original order of ideas.\n\n")
	b.WriteString(textFence)
	b.WriteString("\n")
	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("Part %d: %s", i+1, strings.TrimSpace(s)))
	}
	b.WriteString("\n")
	b.WriteString(textFence)
	b.WriteString("\n\nCONCISE SUMMARY:")

	return b.String()
}
