package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marco/pkg/config"
	"marco/pkg/ollama"
)

// OllamaProvider generates text via the local Ollama daemon's chat API.
type OllamaProvider struct {
	config *config.LLMProviderConfig
	client *ollama.Client
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	Error           string  `json:"error,omitempty"`
}

// NewOllamaProviderFromConfig creates an Ollama chat provider.
func NewOllamaProviderFromConfig(cfg *config.LLMProviderConfig) (*OllamaProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	return &OllamaProvider{
		config: cfg,
		client: ollama.NewClientWithTimeout(cfg.Host, timeout),
	}, nil
}

// Generate runs a blocking chat completion.
func (p *OllamaProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, int, error) {
	request := p.buildRequest(messages, false, opts)

	resp, err := p.client.MakeRequest(ctx, "/api/chat", request)
	if err != nil {
		return "", 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != "" {
		return "", 0, fmt.Errorf("Ollama API error: %s", response.Error)
	}

	return response.Message.Content, response.PromptEvalCount + response.EvalCount, nil
}

// GenerateStreaming runs a chat completion and emits chunks on the
// returned channel.
func (p *OllamaProvider) GenerateStreaming(ctx context.Context, messages []Message, opts Options) (<-chan StreamChunk, error) {
	request := p.buildRequest(messages, true, opts)

	outputCh := make(chan StreamChunk, 100)

	go func() {
		defer close(outputCh)

		if err := p.streamRequest(ctx, request, outputCh); err != nil {
			outputCh <- StreamChunk{Type: "error", Error: err}
		}
	}()

	return outputCh, nil
}

// ModelName returns the configured model name.
func (p *OllamaProvider) ModelName() string {
	return p.config.Model
}

// Close releases provider resources.
func (p *OllamaProvider) Close() error {
	return nil
}

func (p *OllamaProvider) buildRequest(messages []Message, stream bool, opts Options) ollamaRequest {
	temperature := p.config.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := p.config.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	request := ollamaRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   stream,
	}
	if temperature > 0 || maxTokens > 0 || p.config.TopP > 0 {
		request.Options = &ollamaOptions{
			Temperature: temperature,
			TopP:        p.config.TopP,
			NumPredict:  maxTokens,
		}
	}

	return request
}

func (p *OllamaProvider) streamRequest(ctx context.Context, request ollamaRequest, outputCh chan<- StreamChunk) error {
	resp, err := p.client.MakeStreamingRequest(ctx, "/api/chat", request)
	if err != nil {
		return fmt.Errorf("failed to make streaming request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var errorJSON struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(bodyBytes, &errorJSON) == nil && errorJSON.Error != "" {
			return fmt.Errorf("Ollama API error: %s", errorJSON.Error)
		}
		return fmt.Errorf("Ollama API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}

		if chunk.Error != "" {
			return fmt.Errorf("Ollama API error: %s", chunk.Error)
		}

		if chunk.Message.Content != "" {
			select {
			case outputCh <- StreamChunk{Type: "text", Text: chunk.Message.Content}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if chunk.Done {
			outputCh <- StreamChunk{
				Type:   "done",
				Tokens: chunk.PromptEvalCount + chunk.EvalCount,
			}
			break
		}
	}

	return nil
}
