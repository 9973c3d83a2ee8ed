// Package config defines the marco configuration model and its loader.
//
// Configuration flows through a fixed pipeline: raw YAML -> map ->
// environment variable expansion -> struct decoding -> SetDefaults ->
// Validate. Every config struct carries its own SetDefaults and Validate
// so partial configs always end up complete and checked.
package config

import (
	"fmt"
)

// Agent names used as keys in Config.Agents.
const (
	AgentResearcher    = "researcher"
	AgentContentEditor = "content_editor"
	AgentStyleEditor   = "style_editor"
	AgentReviewer      = "reviewer"
)

// Config is the root configuration for marco.
type Config struct {
	// Workspace holds the paths of the research workspace.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// LLM configures the generation model on the Ollama daemon.
	LLM LLMProviderConfig `yaml:"llm"`

	// Embedder configures the embedding model on the Ollama daemon.
	Embedder EmbedderConfig `yaml:"embedder"`

	// VectorStore configures where bibliography vectors are kept.
	VectorStore VectorStoreConfig `yaml:"vector_store"`

	// Chunking configures how source documents are split before indexing.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Agents holds per-agent overrides (temperature, token budget).
	Agents map[string]AgentConfig `yaml:"agents"`

	// Workflow configures the multi-agent pipeline.
	Workflow WorkflowConfig `yaml:"workflow"`

	// Generation configures section generation and prior-context reuse.
	Generation GenerationConfig `yaml:"generation"`
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	c.Workspace.SetDefaults()
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.VectorStore.SetDefaults()
	c.Chunking.SetDefaults()
	c.Workflow.SetDefaults()
	c.Generation.SetDefaults()

	if c.Agents == nil {
		c.Agents = make(map[string]AgentConfig)
	}
	for _, name := range []string{AgentResearcher, AgentContentEditor, AgentStyleEditor, AgentReviewer} {
		agent := c.Agents[name]
		agent.SetDefaults(name)
		c.Agents[name] = agent
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Workspace.Validate(); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector_store: %w", err)
	}
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	for name, agent := range c.Agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
	}
	return nil
}

// Agent returns the configuration for the named agent, falling back to
// defaults when the agent was never configured.
func (c *Config) Agent(name string) AgentConfig {
	if agent, ok := c.Agents[name]; ok {
		return agent
	}
	agent := AgentConfig{}
	agent.SetDefaults(name)
	return agent
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
