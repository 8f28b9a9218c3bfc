package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNothingToSummarize is returned when the pipeline receives no chunks.
	ErrNothingToSummarize = errors.New("nothing to summarize")

	// ErrCancelled is returned when the caller cancels the run. It is an
	// outcome, not a failure: no partial summary is produced.
	ErrCancelled = errors.New("summarization cancelled")

	// ErrReduceDepthExceeded is wrapped in a reduce SummarizationError when
	// partial summaries still do not fit after MaxReduceDepth generations.
	ErrReduceDepthExceeded = errors.New("reduce depth exceeded")

	// ErrEmptyResponse is wrapped when a model call returns only whitespace.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Phase identifies the step of the pipeline that failed.
type Phase string

const (
	PhaseMap    Phase = "map"
	PhaseReduce Phase = "reduce"
)

// SummarizationError reports a failed model call. ChunkIndex is the index of
// the failing chunk within its generation, or -1 for the reduce phase.
type SummarizationError struct {
	ChunkIndex int
	Phase      Phase
	Depth      int
	Err        error
}

func (e *SummarizationError) Error() string {
	if e.Phase == PhaseReduce {
		return fmt.Sprintf("summarization failed in reduce phase (depth %d): %v", e.Depth, e.Err)
	}
	return fmt.Sprintf("summarization failed in map phase for chunk %d (depth %d): %v", e.ChunkIndex, e.Depth, e.Err)
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}

// cancelled wraps the context cause so callers can match both ErrCancelled
// and the original context error.
func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}
