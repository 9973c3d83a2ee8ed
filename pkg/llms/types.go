// Package llms provides the chat-completion provider used by the agents.
package llms

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are per-call generation overrides. Zero values mean "use the
// provider's configured defaults".
type Options struct {
	Temperature float64
	MaxTokens   int
}

// StreamChunk is one unit of streaming output.
type StreamChunk struct {
	// Type is "text" or "done". Error chunks carry a non-nil Error.
	Type string

	// Text is the content delta for "text" chunks.
	Text string

	// Tokens is the total token count, set on the "done" chunk.
	Tokens int

	// Error terminates the stream when non-nil.
	Error error
}

// Provider generates text from chat messages.
type Provider interface {
	// Generate runs a blocking chat completion and returns the full text
	// and the total token count.
	Generate(ctx context.Context, messages []Message, opts Options) (string, int, error)

	// GenerateStreaming runs a chat completion and emits chunks on the
	// returned channel. The channel is closed when generation ends.
	GenerateStreaming(ctx context.Context, messages []Message, opts Options) (<-chan StreamChunk, error)

	// ModelName returns the underlying model name.
	ModelName() string

	// Close releases provider resources.
	Close() error
}
