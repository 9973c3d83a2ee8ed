package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gemma2:27b", cfg.LLM.Model)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, 768, cfg.Embedder.Dimension)
	assert.Equal(t, VectorStoreChromem, cfg.VectorStore.Type)
	assert.Equal(t, "bibliography", cfg.VectorStore.Collection)
	assert.Equal(t, 1000, cfg.Chunking.ChunkSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 8, cfg.Workflow.MaxAttempts)
	assert.InDelta(t, 0.7, cfg.Workflow.QualityThreshold, 1e-9)
	assert.True(t, cfg.Generation.IncludeContext())
	assert.Len(t, cfg.Agents, 4)
}

func TestValidateRejectsBadSections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty llm model",
			mutate:  func(c *Config) { c.LLM.Model = "" },
			wantErr: "llm",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.LLM.Temperature = 3.5 },
			wantErr: "temperature",
		},
		{
			name:    "zero embedding dimension",
			mutate:  func(c *Config) { c.Embedder.Dimension = -1 },
			wantErr: "dimension",
		},
		{
			name:    "unknown vector store type",
			mutate:  func(c *Config) { c.VectorStore.Type = "pinecone" },
			wantErr: "vector_store",
		},
		{
			name:    "overlap not below chunk size",
			mutate:  func(c *Config) { c.Chunking.Overlap = c.Chunking.ChunkSize },
			wantErr: "chunking",
		},
		{
			name:    "quality threshold above one",
			mutate:  func(c *Config) { c.Workflow.QualityThreshold = 1.5 },
			wantErr: "quality_threshold",
		},
		{
			name:    "negative agent token budget",
			mutate:  func(c *Config) { c.Agents[AgentReviewer] = AgentConfig{MaxTokens: -1} },
			wantErr: "reviewer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAgentFallsBackToDefaults(t *testing.T) {
	cfg := &Config{}

	agent := cfg.Agent(AgentContentEditor)
	assert.InDelta(t, 0.4, agent.Temperature, 1e-9)
	assert.Equal(t, 8000, agent.MaxTokens)
	assert.NotEmpty(t, agent.Role)
}
