package config

import "fmt"

// LLMProviderConfig configures the generation model served by the local
// Ollama daemon.
type LLMProviderConfig struct {
	// Model is the Ollama model name (e.g. "gemma2:27b", "llama3.1:8b").
	Model string `yaml:"model,omitempty"`

	// Host is the daemon base URL.
	Host string `yaml:"host,omitempty"`

	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature,omitempty"`

	// TopP controls nucleus sampling.
	TopP float64 `yaml:"top_p,omitempty"`

	// MaxTokens caps generated tokens per call.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gemma2:27b"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.TopP == 0 {
		c.TopP = 0.9
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 300
	}
}

// Validate checks the configuration for errors.
func (c *LLMProviderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Timeout)
	}
	return nil
}

// EmbedderConfig configures the embedding model served by the daemon.
type EmbedderConfig struct {
	// Model is the embedding model name.
	Model string `yaml:"model,omitempty"`

	// Host is the daemon base URL.
	Host string `yaml:"host,omitempty"`

	// Dimension is the embedding vector dimension.
	Dimension int `yaml:"dimension,omitempty"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries is the number of attempts per embedding request.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// SetDefaults applies default values.
func (c *EmbedderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "nomic-embed-text"
	}
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Dimension == 0 {
		c.Dimension = 768
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks the configuration for errors.
func (c *EmbedderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", c.Dimension)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	return nil
}

// AgentConfig holds per-agent model overrides.
type AgentConfig struct {
	// Role is a short description injected into the agent's prompts.
	Role string `yaml:"role,omitempty"`

	// Temperature overrides the LLM temperature for this agent.
	Temperature float64 `yaml:"temperature,omitempty"`

	// MaxTokens overrides the LLM token budget for this agent.
	MaxTokens int `yaml:"max_tokens,omitempty"`
}

// SetDefaults applies role-specific defaults for a known agent name.
func (c *AgentConfig) SetDefaults(name string) {
	switch name {
	case AgentResearcher:
		if c.Role == "" {
			c.Role = "academic researcher specialized in bibliography analysis"
		}
		if c.Temperature == 0 {
			c.Temperature = 0.2
		}
		if c.MaxTokens == 0 {
			c.MaxTokens = 4000
		}
	case AgentContentEditor:
		if c.Role == "" {
			c.Role = "academic content editor generating sourced prose"
		}
		if c.Temperature == 0 {
			c.Temperature = 0.4
		}
		if c.MaxTokens == 0 {
			c.MaxTokens = 8000
		}
	case AgentStyleEditor:
		if c.Role == "" {
			c.Role = "academic copy editor specialized in citation formatting"
		}
		if c.Temperature == 0 {
			c.Temperature = 0.3
		}
		if c.MaxTokens == 0 {
			c.MaxTokens = 6000
		}
	case AgentReviewer:
		if c.Role == "" {
			c.Role = "academic quality reviewer"
		}
		if c.Temperature == 0 {
			c.Temperature = 0.2
		}
		if c.MaxTokens == 0 {
			c.MaxTokens = 4000
		}
	default:
		if c.Temperature == 0 {
			c.Temperature = 0.3
		}
		if c.MaxTokens == 0 {
			c.MaxTokens = 4000
		}
	}
}

// Validate checks the configuration for errors.
func (c *AgentConfig) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %v", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d", c.MaxTokens)
	}
	return nil
}
