// Package llm is the boundary to remote text-generation models.
// It defines a provider-agnostic LLM interface with concrete implementations
// for OpenAI, langchaingo-backed providers (Ollama and OpenAI-compatible
// endpoints) and a deterministic mock. Client turns an LLM into the
// chunk/reduce capability the summarization pipeline consumes.
package llm

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
	ErrEmptyResponse = errors.New("LLM returned an empty response")
)

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text from a prompt using the configured model.
	// Returns the generated text or an error if generation fails.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names a backend family.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderOllama     Provider = "ollama"
	ProviderCompatible Provider = "compatible"
	ProviderMock       Provider = "mock"
)

// Providers lists every supported provider.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderOllama, ProviderCompatible, ProviderMock}
}

// Config holds common configuration options for LLM providers.
type Config struct {
	// Provider selects the backend (openai, ollama, compatible, mock)
	Provider Provider

	// Model specifies the model identifier (e.g., "gpt-4", "gpt-3.5-turbo")
	Model string

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random)
	Temperature float64

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string

	// BaseURL overrides the provider endpoint (required for ollama and compatible)
	BaseURL string
}

// DefaultConfig returns sensible defaults for summarization: the fast OpenAI
// tier at temperature 0 for reproducible output.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderOpenAI,
		Model:       ModelGPT35Turbo,
		Temperature: 0,
	}
}
