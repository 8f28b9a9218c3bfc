package orchestrator

import (
	"errors"

	"github.com/Yates-Labs/precis/internal/chunk"
	"github.com/Yates-Labs/precis/internal/config"
	"github.com/Yates-Labs/precis/internal/extract"
	"github.com/Yates-Labs/precis/internal/llm"
	"github.com/Yates-Labs/precis/internal/pipeline"
)

// ErrorKind groups run failures by who has to act on them.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindInvalidInput  ErrorKind = "invalid_input"
	KindExtraction    ErrorKind = "extraction"
	KindSummarization ErrorKind = "summarization"
	KindBusy          ErrorKind = "busy"
	KindCancelled     ErrorKind = "cancelled"
	KindInternal      ErrorKind = "internal"
)

// Classify maps an error returned by Run or Prepare to its kind.
// Cancellation is checked first; a model failure inside the pipeline is a
// summarization failure even when it wraps a configuration error.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var (
		cfgErr *chunk.ConfigurationError
		extErr *extract.ExtractionError
		sumErr *pipeline.SummarizationError
	)
	switch {
	case errors.Is(err, pipeline.ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.As(err, &sumErr):
		return KindSummarization
	case errors.As(err, &extErr):
		return KindExtraction
	case errors.As(err, &cfgErr),
		errors.Is(err, extract.ErrNoInput),
		errors.Is(err, pipeline.ErrNothingToSummarize),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, llm.ErrUnknownModel),
		errors.Is(err, llm.ErrInvalidConfig):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
