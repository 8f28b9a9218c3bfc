package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/precis/internal/llm"
	"github.com/Yates-Labs/precis/internal/present"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the selectable OpenAI models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		headerStyle := lipgloss.NewStyle().Foreground(present.HeaderColor).Bold(true).Width(16)
		idStyle := lipgloss.NewStyle().Foreground(present.AccentColor).Width(16)
		tierStyle := lipgloss.NewStyle().Foreground(present.NumberColor)
		borderStyle := lipgloss.NewStyle().Foreground(present.BorderColor)

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, headerStyle.Render("MODEL")+headerStyle.Render("TIER"))
		fmt.Fprintln(w, borderStyle.Render(strings.Repeat("─", 32)))
		for _, m := range llm.SupportedModels() {
			id := m.ID
			if m.ID == cfg.Model {
				id += " *"
			}
			fmt.Fprintln(w, idStyle.Render(id)+tierStyle.Render(string(m.Tier)))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, borderStyle.Render(fmt.Sprintf("Tier names %q and %q select %s and %s. * marks the configured default.",
			llm.TierFast, llm.TierQuality, llm.ModelGPT35Turbo, llm.ModelGPT4)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
