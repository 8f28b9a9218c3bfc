package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/precis/internal/config"
	"github.com/Yates-Labs/precis/internal/extract"
	"github.com/Yates-Labs/precis/internal/orchestrator"
	"github.com/Yates-Labs/precis/internal/pipeline"
	"github.com/Yates-Labs/precis/internal/present"
)

var summarizeFlags struct {
	text        string
	model       string
	provider    string
	chunkSize   int
	concurrency int
	timeout     time.Duration
	output      string
	format      string
	width       int
	verbose     bool
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file|-]",
	Short: "Summarize a document or pasted text",
	Long: `Summarize a document (txt, pdf, docx, xlsx, md), standard input, or text
passed with --text.

When both a file and --text are given, the file wins.
Press Ctrl+C to cancel a run; nothing partial is printed.

Examples:
  precis summarize report.pdf
  precis summarize notes.md --model quality --chunk-size 2000
  cat meeting.txt | precis summarize -
  precis summarize --text "Long pasted text..." --output summary.txt
  precis summarize report.docx --format json --output result.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	f := summarizeCmd.Flags()
	f.StringVar(&summarizeFlags.text, "text", "", "Text to summarize instead of a file")
	f.StringVarP(&summarizeFlags.model, "model", "m", "", "Model id or tier (fast, quality)")
	f.StringVar(&summarizeFlags.provider, "provider", "", "Model provider: openai, ollama, compatible, mock")
	f.IntVar(&summarizeFlags.chunkSize, "chunk-size", 0, fmt.Sprintf("Characters per chunk (%d-%d)", config.MinChunkSize, config.MaxChunkSize))
	f.IntVar(&summarizeFlags.concurrency, "concurrency", 0, "Maximum concurrent model calls")
	f.DurationVar(&summarizeFlags.timeout, "timeout", 0, "Timeout for each model call, e.g. 90s")
	f.StringVarP(&summarizeFlags.output, "output", "o", "", "Write the summary to a file instead of the terminal")
	f.StringVar(&summarizeFlags.format, "format", "text", "Output format: text or json")
	f.IntVar(&summarizeFlags.width, "width", 80, "Wrap terminal output at this width (0 = no wrap)")
	f.BoolVar(&summarizeFlags.verbose, "verbose", false, "Show the input preview and per-chunk progress")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, stop := runContext(cmd)
	defer stop()

	runCfg, err := summarizeConfig(cmd)
	if err != nil {
		return err
	}

	req, err := buildRequest(cmd.InOrStdin(), args, summarizeFlags.text)
	if err != nil {
		return err
	}
	req.ChunkSize = summarizeFlags.chunkSize
	if summarizeFlags.verbose {
		req.Progress = progressPrinter(cmd.ErrOrStderr())
	}

	orch, err := orchestrator.New(runCfg, orchestrator.WithLogger(logger))
	if err != nil {
		return err
	}

	result, err := orch.Run(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", pipeline.ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("summarization failed: %w", err)
	}

	if summarizeFlags.output != "" {
		return writeOutput(cmd.OutOrStdout(), result, summarizeFlags.output, summarizeFlags.format)
	}
	if summarizeFlags.format == string(present.FormatText) {
		fmt.Fprintln(cmd.OutOrStdout(), present.Render(result, summarizeFlags.width, summarizeFlags.verbose))
		return nil
	}
	return present.Export(result, summarizeFlags.format, cmd.OutOrStdout())
}

// summarizeConfig applies explicitly set flags on top of the environment.
func summarizeConfig(cmd *cobra.Command) (config.Config, error) {
	c := cfg
	flags := cmd.Flags()
	if flags.Changed("provider") {
		c.Provider = summarizeFlags.provider
	}
	if flags.Changed("model") {
		c.Model = summarizeFlags.model
	}
	if flags.Changed("concurrency") {
		c.Concurrency = summarizeFlags.concurrency
	}
	if flags.Changed("timeout") {
		c.CallTimeout = summarizeFlags.timeout
	}
	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}
	return c, nil
}

// buildRequest reads the file argument ("-" for stdin) or falls back to text.
func buildRequest(stdin io.Reader, args []string, text string) (orchestrator.Request, error) {
	req := orchestrator.Request{Text: text}
	if len(args) == 0 {
		return req, nil
	}

	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("failed to read standard input: %w", err)
		}
		req.File = &extract.Document{Name: "stdin", Data: data}
		return req, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return req, fmt.Errorf("failed to read input file: %w", err)
	}
	req.File = &extract.Document{Name: filepath.Base(args[0]), Data: data}
	return req, nil
}

func progressPrinter(w io.Writer) func(pipeline.ChunkSummary) {
	style := lipgloss.NewStyle().Foreground(present.BorderColor)
	var done atomic.Int32
	return func(s pipeline.ChunkSummary) {
		n := done.Add(1)
		fmt.Fprintln(w, style.Render(fmt.Sprintf("✓ chunk %d summarized (depth %d, %d done)", s.Index, s.Depth, n)))
	}
}

func writeOutput(stdout io.Writer, result present.Result, filename, format string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := present.Export(result, format, file); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintf(stdout, "✓ Wrote summary to %s\n", filename)
	return nil
}

// runContext is cancelled on SIGINT or SIGTERM.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
