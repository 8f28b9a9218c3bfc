package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoSummaries = errors.New("no summaries to reduce")

// Client adapts an LLM to the two calls the summarization pipeline makes.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	llm   LLM
	model string
}

// NewClient wraps llm. model is informational and reported by Model.
func NewClient(llm LLM, model string) *Client {
	return &Client{llm: llm, model: model}
}

// Model returns the model identifier this client was built for.
func (c *Client) Model() string { return c.model }

// SummarizeChunk produces a summary of one chunk of text.
func (c *Client) SummarizeChunk(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: chunk text is empty", ErrInvalidConfig)
	}
	return c.generate(ctx, MapPrompt(text))
}

// ReduceSummaries merges ordered partial summaries into one summary.
func (c *Client) ReduceSummaries(ctx context.Context, summaries []string) (string, error) {
	if len(summaries) == 0 {
		return "", ErrNoSummaries
	}
	return c.generate(ctx, ReducePrompt(summaries))
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.llm == nil {
		return "", fmt.Errorf("%w: LLM is required", ErrInvalidConfig)
	}
	text, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
