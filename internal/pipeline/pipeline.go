// Package pipeline implements chunked map-reduce summarization.
//
// Every chunk is summarized independently (map) with bounded concurrency;
// once all partial summaries of a generation are in, they are merged in chunk
// order (reduce). When the merged input would itself exceed the chunk size,
// the partial summaries are re-chunked and the map and reduce steps run again
// on the next generation.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Yates-Labs/precis/internal/chunk"
)

// reduceSeparator joins partial summaries when measuring the reduce input.
const reduceSeparator = "\n\n"

// ModelClient is the capability the pipeline needs from a model adapter.
// Implementations must be safe for concurrent use.
type ModelClient interface {
	SummarizeChunk(ctx context.Context, text string) (string, error)
	ReduceSummaries(ctx context.Context, summaries []string) (string, error)
}

// Config bounds a pipeline run.
type Config struct {
	// Concurrency is the maximum number of map calls in flight
	Concurrency int

	// CallTimeout caps each model call (0 = no per-call timeout)
	CallTimeout time.Duration

	// MaxReduceDepth is the number of extra map+reduce generations allowed
	// when partial summaries do not fit in one reduce call
	MaxReduceDepth int
}

// DefaultConfig returns sensible defaults for a hosted chat model.
func DefaultConfig() Config {
	return Config{
		Concurrency:    4,
		CallTimeout:    2 * time.Minute,
		MaxReduceDepth: 4,
	}
}

// ChunkSummary is the map output for one chunk.
type ChunkSummary struct {
	Index int    `json:"index"`
	Depth int    `json:"depth"`
	Text  string `json:"text"`
}

// Stats describes the work done by one run.
type Stats struct {
	Chunks      int           `json:"chunks"`
	MapCalls    int           `json:"map_calls"`
	ReduceCalls int           `json:"reduce_calls"`
	Depth       int           `json:"depth"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Summary is the final output of a run.
type Summary struct {
	Text  string `json:"text"`
	Stats Stats  `json:"stats"`
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for phase and call events.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithProgress registers a callback invoked as each map call completes.
// It may be called concurrently from several goroutines, but never after
// Summarize has returned.
func WithProgress(fn func(ChunkSummary)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// Pipeline runs map-reduce summarization. It keeps no state between runs.
type Pipeline struct {
	client   ModelClient
	splitter *chunk.Splitter
	config   Config
	log      zerolog.Logger
	progress func(ChunkSummary)
}

// New creates a pipeline. The splitter decides when reduce input is too
// large and re-chunks it.
func New(client ModelClient, splitter *chunk.Splitter, config Config, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("pipeline: model client is required")
	}
	if splitter == nil {
		return nil, fmt.Errorf("pipeline: splitter is required")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.MaxReduceDepth < 0 {
		config.MaxReduceDepth = 0
	}

	p := &Pipeline{
		client:   client,
		splitter: splitter,
		config:   config,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// run carries the counters of a single Summarize call.
type run struct {
	*Pipeline
	mapCalls    atomic.Int64
	reduceCalls atomic.Int64
	depth       int

	// reporting is held shared by progress callbacks; finish takes it
	// exclusively so no callback starts once the run has returned.
	reporting sync.RWMutex
	finished  bool
}

func (r *run) report(s ChunkSummary) {
	if r.progress == nil {
		return
	}
	r.reporting.RLock()
	defer r.reporting.RUnlock()
	if !r.finished {
		r.progress(s)
	}
}

func (r *run) finish() {
	r.reporting.Lock()
	r.finished = true
	r.reporting.Unlock()
}

// Summarize produces the final summary of chunks. A single chunk's map
// result is returned as is, without a reduce call. Any failed call aborts
// the run with a *SummarizationError; cancelling ctx aborts it with
// ErrCancelled without waiting for in-flight calls.
func (p *Pipeline) Summarize(ctx context.Context, chunks []chunk.Chunk) (*Summary, error) {
	if len(chunks) == 0 {
		return nil, ErrNothingToSummarize
	}
	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}

	ordered := slices.Clone(chunks)
	slices.SortStableFunc(ordered, func(a, b chunk.Chunk) int { return a.Index - b.Index })

	start := time.Now()
	r := &run{Pipeline: p}
	defer r.finish()
	p.log.Info().Int("chunks", len(ordered)).Int("concurrency", p.config.Concurrency).Msg("summarization started")

	text, err := r.summarize(ctx, 0, ordered)
	if err != nil {
		return nil, err
	}

	stats := Stats{
		Chunks:      len(ordered),
		MapCalls:    int(r.mapCalls.Load()),
		ReduceCalls: int(r.reduceCalls.Load()),
		Depth:       r.depth,
		Elapsed:     time.Since(start),
	}
	p.log.Info().
		Int("map_calls", stats.MapCalls).
		Int("reduce_calls", stats.ReduceCalls).
		Int("depth", stats.Depth).
		Dur("elapsed", stats.Elapsed).
		Msg("summarization finished")

	return &Summary{Text: text, Stats: stats}, nil
}

func (r *run) summarize(ctx context.Context, depth int, chunks []chunk.Chunk) (string, error) {
	r.depth = depth

	partials, err := r.mapPhase(ctx, depth, chunks)
	if err != nil {
		return "", err
	}
	if len(partials) == 1 {
		return partials[0], nil
	}
	return r.reducePhase(ctx, depth, partials)
}

// mapPhase summarizes chunks concurrently and returns results in chunk
// order. It returns as soon as ctx is cancelled, leaving any in-flight calls
// to observe the cancellation on their own.
func (r *run) mapPhase(ctx context.Context, depth int, chunks []chunk.Chunk) ([]string, error) {
	results := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	r.log.Debug().Int("depth", depth).Int("chunks", len(chunks)).Msg("map phase started")

	done := make(chan error, 1)
	go func() {
		for pos, c := range chunks {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				text, err := r.mapOne(gctx, depth, c)
				if err != nil {
					return err
				}
				results[pos] = text
				if gctx.Err() == nil {
					r.report(ChunkSummary{Index: c.Index, Depth: depth, Text: text})
				}
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		if err != nil {
			return nil, err
		}
		return results, nil
	case <-ctx.Done():
		r.log.Debug().Int("depth", depth).Msg("map phase cancelled")
		return nil, cancelled(ctx)
	}
}

func (r *run) mapOne(ctx context.Context, depth int, c chunk.Chunk) (string, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	r.mapCalls.Add(1)
	start := time.Now()
	text, err := r.client.SummarizeChunk(callCtx, c.Content)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return "", &SummarizationError{ChunkIndex: c.Index, Phase: PhaseMap, Depth: depth, Err: err}
	}

	r.log.Debug().
		Int("chunk", c.Index).
		Int("depth", depth).
		Int("chars", c.Len()).
		Dur("took", time.Since(start)).
		Msg("chunk summarized")
	return text, nil
}

func (r *run) reducePhase(ctx context.Context, depth int, partials []string) (string, error) {
	joined := strings.Join(partials, reduceSeparator)
	if !r.splitter.Fits(joined) {
		if depth >= r.config.MaxReduceDepth {
			return "", &SummarizationError{
				ChunkIndex: -1,
				Phase:      PhaseReduce,
				Depth:      depth,
				Err:        fmt.Errorf("%w: %d partial summaries still exceed %d characters", ErrReduceDepthExceeded, len(partials), r.splitter.MaxChunkSize()),
			}
		}
		next := r.splitter.Split(joined)
		r.log.Debug().Int("depth", depth+1).Int("chunks", len(next)).Msg("reduce input too large, re-chunking")
		return r.summarize(ctx, depth+1, next)
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	r.reduceCalls.Add(1)
	text, err := r.client.ReduceSummaries(callCtx, partials)
	if ctx.Err() != nil {
		return "", cancelled(ctx)
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return "", &SummarizationError{ChunkIndex: -1, Phase: PhaseReduce, Depth: depth, Err: err}
	}

	r.log.Debug().Int("depth", depth).Int("partials", len(partials)).Msg("partial summaries reduced")
	return text, nil
}

func (r *run) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.CallTimeout > 0 {
		return context.WithTimeout(ctx, r.config.CallTimeout)
	}
	return context.WithCancel(ctx)
}
