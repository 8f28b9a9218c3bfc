package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/precis/internal/orchestrator"
	"github.com/Yates-Labs/precis/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the summarizer over HTTP",
	Long: `Start an HTTP server exposing the summarizer.

Endpoints:
  GET  /healthz
  GET  /api/settings
  POST /api/summarize           (multipart: file, text, model, chunk_size; or JSON)
  POST /api/summarize/download  (same input, returns summary.txt)

Only one summarization runs at a time; concurrent requests get 429.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from PRECIS_LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := runContext(cmd)
	defer stop()

	addr := cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	orch, err := orchestrator.New(cfg, orchestrator.WithLogger(logger))
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	return server.New(orch, logger).ListenAndServe(ctx, addr)
}
