package llm

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the decorators New applies around the provider.
type Options struct {
	RetryAttempts     int
	RetryBackoff      time.Duration
	RequestsPerMinute float64
	Logger            zerolog.Logger
}

// NewProvider returns the bare LLM for config.Provider.
func NewProvider(config Config) (LLM, error) {
	switch config.Provider {
	case ProviderOpenAI, "":
		return NewOpenAILLM(config)
	case ProviderOllama:
		return NewOllamaLLM(config)
	case ProviderCompatible:
		return NewCompatibleLLM(config)
	case ProviderMock:
		return &MockLLM{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, config.Provider)
	}
}

// New resolves the model, builds the provider and wraps it with rate
// limiting and bounded retry. The returned Client is ready for the pipeline.
func New(config Config, opts Options) (*Client, error) {
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	model, err := ResolveModel(config.Provider, config.Model)
	if err != nil {
		return nil, err
	}
	config.Model = model

	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}

	// Rate limiting sits inside retry so every attempt is paced.
	var l LLM = WithRateLimit(provider, opts.RequestsPerMinute)
	l = WithRetry(l, RetryPolicy{
		Attempts: opts.RetryAttempts,
		Backoff:  opts.RetryBackoff,
		Logger:   opts.Logger,
	})

	opts.Logger.Debug().
		Str("provider", string(config.Provider)).
		Str("model", model).
		Float64("temperature", config.Temperature).
		Msg("LLM client initialized")

	return NewClient(l, model), nil
}
