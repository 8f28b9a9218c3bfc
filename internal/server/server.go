// Package server exposes the summarizer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/precis/internal/orchestrator"
)

// StatusClientClosedRequest is answered when the caller went away before the
// summary was ready.
const StatusClientClosedRequest = 499

type Server struct {
	orch   *orchestrator.Orchestrator
	log    zerolog.Logger
	router *gin.Engine
}

// New builds the router around orch.
func New(orch *orchestrator.Orchestrator, log zerolog.Logger) *Server {
	s := &Server{orch: orch, log: log}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggerMiddleware())
	router.MaxMultipartMemory = orch.Config().MaxUploadBytes

	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	api.GET("/settings", s.handleSettings)
	api.POST("/summarize", s.limitBody(), s.handleSummarize)
	api.POST("/summarize/download", s.limitBody(), s.handleDownload)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Debug().Msg("received shutdown signal, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := s.log.Info()
		if status >= http.StatusInternalServerError {
			event = s.log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request handled")
	}
}

// limitBody caps request bodies at the configured upload size.
func (s *Server) limitBody() gin.HandlerFunc {
	limit := s.orch.Config().MaxUploadBytes
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
