package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"marco/pkg/config"
)

func testLLMConfig(host string) *config.LLMProviderConfig {
	cfg := &config.LLMProviderConfig{
		Model:       "llama3.2",
		Host:        host,
		Temperature: 0.7,
		MaxTokens:   2000,
	}
	cfg.SetDefaults()
	return cfg
}

func TestNewOllamaProviderFromConfig(t *testing.T) {
	provider, err := NewOllamaProviderFromConfig(testLLMConfig("http://localhost:11434"))
	if err != nil {
		t.Fatalf("NewOllamaProviderFromConfig() error = %v, want nil", err)
	}
	if provider == nil {
		t.Fatal("NewOllamaProviderFromConfig() returned nil provider")
	}
	if provider.ModelName() != "llama3.2" {
		t.Errorf("ModelName() = %v, want llama3.2", provider.ModelName())
	}

	if _, err := NewOllamaProviderFromConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestOllamaProvider_Generate(t *testing.T) {
	var gotRequest ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.2",
			Message:         Message{Role: RoleAssistant, Content: "generated text"},
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       5,
		})
	}))
	defer server.Close()

	provider, _ := NewOllamaProviderFromConfig(testLLMConfig(server.URL))

	text, tokens, err := provider.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a researcher."},
		{Role: RoleUser, Content: "Summarize."},
	}, Options{Temperature: 0.2, MaxTokens: 500})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if text != "generated text" {
		t.Errorf("Generate() text = %q, want %q", text, "generated text")
	}
	if tokens != 15 {
		t.Errorf("Generate() tokens = %d, want 15", tokens)
	}
	if gotRequest.Model != "llama3.2" {
		t.Errorf("request model = %q", gotRequest.Model)
	}
	if gotRequest.Options == nil || gotRequest.Options.Temperature != 0.2 {
		t.Errorf("per-call temperature override not applied: %+v", gotRequest.Options)
	}
	if gotRequest.Options.NumPredict != 500 {
		t.Errorf("per-call max tokens override not applied: %+v", gotRequest.Options)
	}
}

func TestOllamaProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Error: "model not found"})
	}))
	defer server.Close()

	provider, _ := NewOllamaProviderFromConfig(testLLMConfig(server.URL))

	if _, _, err := provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{}); err == nil {
		t.Fatal("expected error for API error response")
	}
}

func TestOllamaProvider_GenerateStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.Encode(ollamaResponse{Message: Message{Role: RoleAssistant, Content: "hello "}})
		enc.Encode(ollamaResponse{Message: Message{Role: RoleAssistant, Content: "world"}})
		enc.Encode(ollamaResponse{Done: true, PromptEvalCount: 3, EvalCount: 2})
	}))
	defer server.Close()

	provider, _ := NewOllamaProviderFromConfig(testLLMConfig(server.URL))

	ch, err := provider.GenerateStreaming(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var text string
	var tokens int
	for chunk := range ch {
		switch chunk.Type {
		case "text":
			text += chunk.Text
		case "done":
			tokens = chunk.Tokens
		case "error":
			t.Fatalf("unexpected error chunk: %v", chunk.Error)
		}
	}

	if text != "hello world" {
		t.Errorf("streamed text = %q, want %q", text, "hello world")
	}
	if tokens != 5 {
		t.Errorf("streamed tokens = %d, want 5", tokens)
	}
}
