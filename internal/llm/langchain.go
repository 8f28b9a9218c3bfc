package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// LangchainLLM implements the LLM interface on top of a langchaingo model.
// It serves local Ollama servers and OpenAI-compatible gateways such as
// OpenRouter.
type LangchainLLM struct {
	model  llms.Model
	config Config
}

// NewOllamaLLM creates an LLM backed by an Ollama server.
func NewOllamaLLM(config Config) (*LangchainLLM, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: ollama requires a server URL", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	model, err := ollama.New(
		ollama.WithServerURL(config.BaseURL),
		ollama.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &LangchainLLM{model: model, config: config}, nil
}

// NewCompatibleLLM creates an LLM for an OpenAI-compatible endpoint.
func NewCompatibleLLM(config Config) (*LangchainLLM, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: compatible provider requires a base URL", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	model, err := lcopenai.New(
		lcopenai.WithBaseURL(config.BaseURL),
		lcopenai.WithToken(strings.TrimPrefix(config.APIKey, "Bearer ")),
		lcopenai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &LangchainLLM{model: model, config: config}, nil
}

// Generate sends the prompt as a single human message.
func (l *LangchainLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	opts := []llms.CallOption{llms.WithTemperature(l.config.Temperature)}
	if l.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(l.config.MaxTokens))
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := l.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
