package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yates-Labs/precis/internal/config"
	"github.com/Yates-Labs/precis/internal/llm"
	"github.com/Yates-Labs/precis/internal/orchestrator"
	"github.com/Yates-Labs/precis/internal/present"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.Config {
	return config.Config{
		Provider:       "mock",
		Model:          "offline",
		ChunkSize:      1500,
		ChunkOverlap:   100,
		Concurrency:    2,
		MaxReduceDepth: 4,
		LogLevel:       "info",
		ListenAddr:     ":0",
		MaxUploadBytes: 1 << 20,
	}
}

func newTestServer(t *testing.T, cfg config.Config, opts ...orchestrator.Option) *Server {
	t.Helper()
	orch, err := orchestrator.New(cfg, opts...)
	require.NoError(t, err)
	return New(orch, zerolog.Nop())
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileName string, fileData []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = "openai"
	cfg.Model = llm.ModelGPT35Turbo
	s := newTestServer(t, cfg)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp settingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, llm.ModelGPT35Turbo, resp.DefaultModel)
	assert.Len(t, resp.Models, len(llm.SupportedModels()))
	assert.Equal(t, chunkSizeSettings{Min: 500, Max: 3000, Default: 1500, Overlap: 100}, resp.ChunkSize)
	assert.Len(t, resp.Formats, 5)
}

func TestSummarize_JSON(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := postJSON(t, s, "/api/summarize", summarizeBody{Text: "A short pasted text."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result present.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "A short pasted text.", result.OriginalTextPreview)
	assert.Equal(t, "A short pasted text.", result.FinalSummary)
	assert.Equal(t, 1, result.Stats.Chunks)
}

func TestSummarize_MultipartFile(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := multipartRequest(t, "/api/summarize",
		map[string]string{"text": "ignored paste", "chunk_size": "1000"},
		"notes.txt", []byte("Uploaded file contents."))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result present.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Uploaded file contents.", result.OriginalTextPreview)
}

func TestSummarize_MultipartTextOnly(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := multipartRequest(t, "/api/summarize", map[string]string{"text": "Only pasted text."}, "", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestDownload(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := postJSON(t, s, "/api/summarize/download", summarizeBody{Text: "Text to download."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, `attachment; filename="summary.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Text to download.\n", rec.Body.String())
}

func TestSummarize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
		kind   orchestrator.ErrorKind
	}{
		{
			name: "no input",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":"   "}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			status: http.StatusBadRequest,
			kind:   orchestrator.KindInvalidInput,
		},
		{
			name: "chunk size out of range",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":"x","chunk_size":100}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			status: http.StatusBadRequest,
			kind:   orchestrator.KindInvalidInput,
		},
		{
			name: "chunk size not a number",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/summarize", map[string]string{"text": "x", "chunk_size": "big"}, "", nil)
			},
			status: http.StatusBadRequest,
			kind:   orchestrator.KindInvalidInput,
		},
		{
			name: "malformed json",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			status: http.StatusBadRequest,
			kind:   orchestrator.KindInvalidInput,
		},
		{
			name: "unsupported upload",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/summarize", nil, "image.bin", []byte{0x00, 0x01, 0x02, 0xff})
			},
			status: http.StatusUnprocessableEntity,
			kind:   orchestrator.KindExtraction,
		},
		{
			name: "unsupported content type",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader("plain"))
				r.Header.Set("Content-Type", "text/plain")
				return r
			},
			status: http.StatusUnsupportedMediaType,
			kind:   orchestrator.KindInvalidInput,
		},
		{
			name: "client went away",
			req: func(t *testing.T) *http.Request {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				r := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"text":"x"}`)).WithContext(ctx)
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			status: StatusClientClosedRequest,
			kind:   orchestrator.KindCancelled,
		},
	}

	s := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, tt.req(t))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeError(t, rec)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestSummarize_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, testConfig(), orchestrator.WithClientFactory(
		func(llm.Config, llm.Options) (orchestrator.ModelClient, error) {
			return llm.NewClient(llm.NewMockLLMWithError(errors.New("503 from upstream")), "broken"), nil
		}))

	rec := postJSON(t, s, "/api/summarize", summarizeBody{Text: "text"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, orchestrator.KindSummarization, decodeError(t, rec).Kind)
}

func TestSummarize_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	s := newTestServer(t, cfg)

	rec := postJSON(t, s, "/api/summarize", summarizeBody{Text: strings.Repeat("x", 500)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

// slowClient blocks map calls until release is closed.
type slowClient struct {
	started chan struct{}
	release chan struct{}
}

func (c *slowClient) SummarizeChunk(ctx context.Context, text string) (string, error) {
	select {
	case c.started <- struct{}{}:
	default:
	}
	<-c.release
	return "done", nil
}

func (c *slowClient) ReduceSummaries(ctx context.Context, summaries []string) (string, error) {
	return "done", nil
}

func (c *slowClient) Model() string { return "slow" }

func TestSummarize_Busy(t *testing.T) {
	slow := &slowClient{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := newTestServer(t, testConfig(), orchestrator.WithClientFactory(
		func(llm.Config, llm.Options) (orchestrator.ModelClient, error) { return slow, nil }))

	first := make(chan int, 1)
	go func() {
		first <- postJSON(t, s, "/api/summarize", summarizeBody{Text: "first"}).Code
	}()

	select {
	case <-slow.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first request never reached the model")
	}

	rec := postJSON(t, s, "/api/summarize", summarizeBody{Text: "second"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, orchestrator.KindBusy, decodeError(t, rec).Kind)

	close(slow.release)
	assert.Equal(t, http.StatusOK, <-first)
}
