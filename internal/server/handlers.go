package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Yates-Labs/precis/internal/config"
	"github.com/Yates-Labs/precis/internal/extract"
	"github.com/Yates-Labs/precis/internal/llm"
	"github.com/Yates-Labs/precis/internal/orchestrator"
	"github.com/Yates-Labs/precis/internal/present"
)

type summarizeBody struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	ChunkSize int    `json:"chunk_size"`
}

type errorResponse struct {
	Error string                 `json:"error"`
	Kind  orchestrator.ErrorKind `json:"kind"`
}

type chunkSizeSettings struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
	Overlap int `json:"overlap"`
}

type settingsResponse struct {
	Provider     string            `json:"provider"`
	DefaultModel string            `json:"default_model"`
	Models       []llm.ModelInfo   `json:"models"`
	ChunkSize    chunkSizeSettings `json:"chunk_size"`
	Formats      []extract.Format  `json:"formats"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSettings(c *gin.Context) {
	cfg := s.orch.Config()

	var models []llm.ModelInfo
	if llm.Provider(cfg.Provider) == llm.ProviderOpenAI {
		models = llm.SupportedModels()
	}

	c.JSON(http.StatusOK, settingsResponse{
		Provider:     cfg.Provider,
		DefaultModel: cfg.Model,
		Models:       models,
		ChunkSize: chunkSizeSettings{
			Min:     config.MinChunkSize,
			Max:     config.MaxChunkSize,
			Default: cfg.ChunkSize,
			Overlap: cfg.ChunkOverlap,
		},
		Formats: s.orch.Formats(),
	})
}

func (s *Server) handleSummarize(c *gin.Context) {
	result, ok := s.summarize(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDownload(c *gin.Context) {
	result, ok := s.summarize(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := present.WriteDownload(&buf, result); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, present.DownloadFilename))
	c.Data(http.StatusOK, present.DownloadMIME+"; charset=utf-8", buf.Bytes())
}

// summarize parses the request, runs it and writes any error response.
func (s *Server) summarize(c *gin.Context) (present.Result, bool) {
	req, err := parseRequest(c)
	if err != nil {
		s.fail(c, err)
		return present.Result{}, false
	}

	result, err := s.orch.Run(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return present.Result{}, false
	}
	return result, true
}

// requestError marks malformed requests.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

func parseRequest(c *gin.Context) (orchestrator.Request, error) {
	contentType := c.ContentType()

	if contentType == "application/json" {
		var body summarizeBody
		if err := c.ShouldBindJSON(&body); err != nil {
			return orchestrator.Request{}, bodyError(err, "invalid JSON body: %w")
		}
		return orchestrator.Request{Text: body.Text, Model: body.Model, ChunkSize: body.ChunkSize}, nil
	}

	if contentType != "multipart/form-data" && contentType != "application/x-www-form-urlencoded" {
		return orchestrator.Request{}, &requestError{
			status: http.StatusUnsupportedMediaType,
			err:    fmt.Errorf("unsupported content type %q", contentType),
		}
	}

	req := orchestrator.Request{
		Text:  c.PostForm("text"),
		Model: c.PostForm("model"),
	}
	if v := strings.TrimSpace(c.PostForm("chunk_size")); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return orchestrator.Request{}, badRequest("chunk_size must be an integer, got %q", v)
		}
		req.ChunkSize = size
	}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return req, nil
	case err != nil:
		return orchestrator.Request{}, bodyError(err, "invalid upload: %w")
	}

	doc, err := readUpload(fh)
	if err != nil {
		return orchestrator.Request{}, bodyError(err, "read upload: %w")
	}
	req.File = doc
	return req, nil
}

func readUpload(fh *multipart.FileHeader) (*extract.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &extract.Document{Name: fh.Filename, Data: data}, nil
}

func bodyError(err error, format string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{
			status: http.StatusRequestEntityTooLarge,
			err:    fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit),
		}
	}
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, err)}
}

// statusFor maps error kinds to HTTP statuses.
var statusFor = map[orchestrator.ErrorKind]int{
	orchestrator.KindInvalidInput:  http.StatusBadRequest,
	orchestrator.KindExtraction:    http.StatusUnprocessableEntity,
	orchestrator.KindSummarization: http.StatusBadGateway,
	orchestrator.KindBusy:          http.StatusTooManyRequests,
	orchestrator.KindCancelled:     StatusClientClosedRequest,
	orchestrator.KindInternal:      http.StatusInternalServerError,
}

func (s *Server) fail(c *gin.Context, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		c.AbortWithStatusJSON(reqErr.status, errorResponse{Error: err.Error(), Kind: orchestrator.KindInvalidInput})
		return
	}

	kind := orchestrator.Classify(err)
	status := statusFor[kind]

	switch kind {
	case orchestrator.KindCancelled:
		s.log.Debug().Msg("summarization cancelled by client")
	case orchestrator.KindInternal, orchestrator.KindSummarization:
		s.log.Error().Err(err).Str("kind", string(kind)).Msg("summarization failed")
	default:
		s.log.Debug().Err(err).Str("kind", string(kind)).Msg("request rejected")
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Kind: kind})
}
