package llm

import (
	"context"
	"strings"
	"sync"
)

const mockSummaryWords = 30

// MockLLM is a deterministic LLM implementation for tests and offline runs.
// It returns predictable responses based on prompt content and is safe for
// concurrent use.
type MockLLM struct {
	// Response is the fixed text returned by Generate.
	// If empty, a response is derived from the quoted text in the prompt.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	mu      sync.Mutex
	prompts []string
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Generate returns the configured response or generates a deterministic one.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return generateMockResponse(prompt), nil
}

// Calls returns how many times Generate was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received, in call order.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastPrompt returns the most recent prompt passed to Generate.
func (m *MockLLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// generateMockResponse keeps the first words of the quoted input, which is
// enough to make repeated reduction shrink.
func generateMockResponse(prompt string) string {
	body := quotedBody(prompt)
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "Nothing to summarize."
	}
	if len(fields) > mockSummaryWords {
		fields = fields[:mockSummaryWords]
	}
	return strings.Join(fields, " ")
}

func quotedBody(prompt string) string {
	start := strings.Index(prompt, textFence)
	end := strings.LastIndex(prompt, textFence)
	if start < 0 || end <= start {
		return prompt
	}
	return prompt[start+len(textFence) : end]
}
