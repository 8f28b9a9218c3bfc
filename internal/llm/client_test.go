package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClient_SummarizeChunk_Success(t *testing.T) {
	mockLLM := NewMockLLM("A short summary of the chunk.")
	client := NewClient(mockLLM, "test-model")

	summary, err := client.SummarizeChunk(context.Background(), "The quarterly report shows revenue grew 12%.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary != "A short summary of the chunk." {
		t.Errorf("unexpected summary: %s", summary)
	}

	if client.Model() != "test-model" {
		t.Errorf("expected model test-model, got %s", client.Model())
	}

	prompt := mockLLM.LastPrompt()
	if !strings.Contains(prompt, "The quarterly report shows revenue grew 12%.") {
		t.Error("prompt should contain the chunk text")
	}
	if !strings.Contains(prompt, "CONCISE SUMMARY:") {
		t.Error("prompt should end with the summary cue")
	}
}

func TestClient_SummarizeChunk_EmptyText(t *testing.T) {
	mockLLM := NewMockLLM("unused")
	client := NewClient(mockLLM, "test-model")

	_, err := client.SummarizeChunk(context.Background(), "   \n")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	if mockLLM.Calls() != 0 {
		t.Errorf("expected no LLM calls, got %d", mockLLM.Calls())
	}
}

func TestClient_ReduceSummaries_KeepsOrder(t *testing.T) {
	mockLLM := NewMockLLM("Combined summary.")
	client := NewClient(mockLLM, "test-model")

	summary, err := client.ReduceSummaries(context.Background(), []string{"first part", "second part", "third part"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "Combined summary." {
		t.Errorf("unexpected summary: %s", summary)
	}

	prompt := mockLLM.LastPrompt()
	first := strings.Index(prompt, "Part 1: first part")
	second := strings.Index(prompt, "Part 2: second part")
	third := strings.Index(prompt, "Part 3: third part")
	if first < 0 || second < 0 || third < 0 {
		t.Fatalf("prompt missing parts: %s", prompt)
	}
	if !(first < second && second < third) {
		t.Errorf("parts out of order: %d, %d, %d", first, second, third)
	}
}

func TestClient_ReduceSummaries_Empty(t *testing.T) {
	client := NewClient(NewMockLLM("unused"), "test-model")

	_, err := client.ReduceSummaries(context.Background(), nil)
	if !errors.Is(err, ErrNoSummaries) {
		t.Errorf("expected ErrNoSummaries, got %v", err)
	}
}

func TestClient_LLMError(t *testing.T) {
	llmErr := errors.New("API rate limit exceeded")
	client := NewClient(NewMockLLMWithError(llmErr), "test-model")

	_, err := client.SummarizeChunk(context.Background(), "some text")
	if !errors.Is(err, llmErr) {
		t.Errorf("expected wrapped LLM error, got %v", err)
	}
}

func TestClient_BlankResponse(t *testing.T) {
	client := NewClient(NewMockLLM("  \n\t"), "test-model")

	_, err := client.SummarizeChunk(context.Background(), "some text")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestClient_NilLLM(t *testing.T) {
	client := NewClient(nil, "test-model")

	_, err := client.SummarizeChunk(context.Background(), "some text")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestMockLLM_Generate(t *testing.T) {
	tests := []struct {
		name     string
		mock     *MockLLM
		prompt   string
		wantErr  bool
		wantText string
	}{
		{
			name:     "fixed response",
			mock:     NewMockLLM("Fixed summary text"),
			prompt:   "Any prompt",
			wantText: "Fixed summary text",
		},
		{
			name:    "error response",
			mock:    NewMockLLMWithError(errors.New("mock error")),
			prompt:  "Any prompt",
			wantErr: true,
		},
		{
			name:     "derived from quoted text",
			mock:     &MockLLM{},
			prompt:   MapPrompt("Alpha beta gamma."),
			wantText: "Alpha beta gamma.",
		},
		{
			name:     "nothing quoted",
			mock:     &MockLLM{},
			prompt:   MapPrompt("   "),
			wantText: "Nothing to summarize.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := tt.mock.Generate(context.Background(), tt.prompt)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if text != tt.wantText {
				t.Errorf("expected %q, got %q", tt.wantText, text)
			}
			if tt.mock.LastPrompt() != tt.prompt {
				t.Errorf("prompt was not recorded")
			}
		})
	}
}

func TestMockLLM_TruncatesLongInput(t *testing.T) {
	long := strings.Repeat("word ", 200)

	text, err := (&MockLLM{}).Generate(context.Background(), MapPrompt(long))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(strings.Fields(text)); n != mockSummaryWords {
		t.Errorf("expected %d words, got %d", mockSummaryWords, n)
	}
}

func TestMockLLM_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockLLM("unused").Generate(ctx, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
