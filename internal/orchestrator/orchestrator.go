package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/Yates-Labs/precis/internal/chunk"
	"github.com/Yates-Labs/precis/internal/config"
	"github.com/Yates-Labs/precis/internal/extract"
	"github.com/Yates-Labs/precis/internal/llm"
	"github.com/Yates-Labs/precis/internal/pipeline"
	"github.com/Yates-Labs/precis/internal/present"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("a summarization is already running")

// maxCachedClients bounds the per-model client cache. Providers other than
// openai accept any model name, so the oldest entry is evicted when full.
const maxCachedClients = 8

// ModelClient is a pipeline client that can report its model.
type ModelClient interface {
	pipeline.ModelClient
	Model() string
}

// ClientFactory builds the model client for one model choice.
type ClientFactory func(cfg llm.Config, opts llm.Options) (ModelClient, error)

func defaultClientFactory(cfg llm.Config, opts llm.Options) (ModelClient, error) {
	client, err := llm.New(cfg, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Request is one summarization job.
type Request struct {
	// File, if set, takes precedence over Text
	File *extract.Document
	Text string

	// Model overrides the configured model (catalogue id or tier name)
	Model string

	// ChunkSize overrides the configured chunk size (0 = configured)
	ChunkSize int

	// Progress receives each partial summary as it completes
	Progress func(pipeline.ChunkSummary)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger passed down to the pipeline and model clients.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithRegistry replaces the default document extractors.
func WithRegistry(reg *extract.Registry) Option {
	return func(o *Orchestrator) { o.registry = reg }
}

// WithClientFactory replaces llm.New as the source of model clients.
func WithClientFactory(f ClientFactory) Option {
	return func(o *Orchestrator) { o.newClient = f }
}

// Orchestrator wires input acquisition, chunking, the map-reduce pipeline
// and result shaping. It runs at most one summarization at a time.
type Orchestrator struct {
	cfg       config.Config
	registry  *extract.Registry
	newClient ClientFactory
	log       zerolog.Logger
	running   *semaphore.Weighted

	mu      sync.Mutex
	clients map[string]ModelClient
	cached  []string
}

// New validates cfg and returns an Orchestrator.
func New(cfg config.Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:       cfg,
		registry:  extract.DefaultRegistry(),
		newClient: defaultClientFactory,
		log:       zerolog.Nop(),
		running:   semaphore.NewWeighted(1),
		clients:   make(map[string]ModelClient),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the configuration the orchestrator was built with.
func (o *Orchestrator) Config() config.Config {
	return o.cfg
}

// Formats lists the document formats accepted for upload.
func (o *Orchestrator) Formats() []extract.Format {
	return o.registry.Formats()
}

// Prepare acquires the input text and splits it into chunks without calling
// any model.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (string, []chunk.Chunk, error) {
	splitter, err := o.splitter(req.ChunkSize)
	if err != nil {
		return "", nil, err
	}

	raw, err := extract.Acquire(ctx, o.registry, extract.Input{File: req.File, Text: req.Text})
	if err != nil {
		return "", nil, fmt.Errorf("failed to acquire input: %w", err)
	}

	chunks := splitter.Split(raw)
	o.log.Debug().
		Int("chars", len([]rune(raw))).
		Int("chunks", len(chunks)).
		Int("chunk_size", splitter.MaxChunkSize()).
		Msg("input chunked")
	return raw, chunks, nil
}

// Run summarizes the request. A second call while one is in flight fails
// with ErrBusy rather than waiting.
func (o *Orchestrator) Run(ctx context.Context, req Request) (present.Result, error) {
	if !o.running.TryAcquire(1) {
		return present.Result{}, ErrBusy
	}
	defer o.running.Release(1)

	if err := ctx.Err(); err != nil {
		return present.Result{}, fmt.Errorf("%w: %w", pipeline.ErrCancelled, err)
	}

	client, err := o.client(req.Model)
	if err != nil {
		return present.Result{}, err
	}

	raw, chunks, err := o.Prepare(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return present.Result{}, fmt.Errorf("%w: %w", pipeline.ErrCancelled, ctx.Err())
		}
		return present.Result{}, err
	}

	// Prepare already validated the size.
	splitter, _ := o.splitter(req.ChunkSize)

	opts := []pipeline.Option{pipeline.WithLogger(o.log)}
	if req.Progress != nil {
		opts = append(opts, pipeline.WithProgress(req.Progress))
	}
	p, err := pipeline.New(client, splitter, o.cfg.PipelineConfig(), opts...)
	if err != nil {
		return present.Result{}, err
	}

	summary, err := p.Summarize(ctx, chunks)
	if err != nil {
		return present.Result{}, err
	}
	return present.NewResult(raw, client.Model(), summary), nil
}

func (o *Orchestrator) splitter(chunkSize int) (*chunk.Splitter, error) {
	if chunkSize != 0 && (chunkSize < config.MinChunkSize || chunkSize > config.MaxChunkSize) {
		return nil, &chunk.ConfigurationError{
			Param:  "chunk_size",
			Value:  chunkSize,
			Reason: fmt.Sprintf("must be between %d and %d", config.MinChunkSize, config.MaxChunkSize),
		}
	}
	return o.cfg.Splitter(chunkSize)
}

// client returns the cached client for model, building it on first use.
func (o *Orchestrator) client(model string) (ModelClient, error) {
	if model == "" {
		model = o.cfg.Model
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if c, ok := o.clients[model]; ok {
		return c, nil
	}
	c, err := o.newClient(o.cfg.LLMConfig(model), o.cfg.LLMOptions(o.log))
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	if len(o.cached) == maxCachedClients {
		delete(o.clients, o.cached[0])
		o.cached = o.cached[1:]
	}
	o.clients[model] = c
	o.cached = append(o.cached, model)
	return c, nil
}
