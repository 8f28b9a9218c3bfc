package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/precis/internal/config"
	"github.com/Yates-Labs/precis/internal/pipeline"
)

// exitCancelled is the conventional exit status after SIGINT.
const exitCancelled = 130

var (
	logLevel string

	cfg    config.Config
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "precis",
	Short: "Precis - Chunked map-reduce document summarizer",
	Long: `Precis summarizes long documents with a hosted language model.

It splits the input into overlapping chunks, summarizes every chunk
concurrently, then merges the partial summaries into one final summary.
Plain text, PDF, DOCX, XLSX and Markdown inputs are supported.

Configuration is read from the environment (and a .env file):
  OPENAI_API_KEY     - OpenAI API key
  PRECIS_PROVIDER    - openai, ollama, compatible or mock (default: openai)
  PRECIS_MODEL       - model or tier name (default: gpt-3.5-turbo)
  PRECIS_CHUNK_SIZE  - characters per chunk, 500-3000 (default: 1500)`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, disabled (default from PRECIS_LOG_LEVEL)")
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, pipeline.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "cancelled")
			os.Exit(exitCancelled)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel = logLevel
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(cfg.Level()).
		With().
		Timestamp().
		Logger()
	return nil
}
