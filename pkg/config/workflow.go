package config

import "fmt"

// ChunkingConfig configures how source documents are split before indexing.
type ChunkingConfig struct {
	// Strategy selects the chunker: "simple", "overlapping" or "semantic".
	Strategy string `yaml:"strategy,omitempty"`

	// ChunkSize is the target chunk size in characters.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// Overlap is the number of characters repeated between adjacent chunks.
	Overlap int `yaml:"overlap,omitempty"`
}

// SetDefaults applies default values.
func (c *ChunkingConfig) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = "overlapping"
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.Overlap == 0 {
		c.Overlap = 200
	}
}

// Validate checks the configuration for errors.
func (c *ChunkingConfig) Validate() error {
	switch c.Strategy {
	case "simple", "overlapping", "semantic":
	default:
		return fmt.Errorf("unsupported chunking strategy: %q", c.Strategy)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap must be in [0, chunk_size), got %d", c.Overlap)
	}
	return nil
}

// WorkflowConfig configures the multi-agent generation pipeline.
type WorkflowConfig struct {
	// MaxAttempts caps how many times the pipeline reworks a section
	// after reviewer rejections before giving up.
	MaxAttempts int `yaml:"max_attempts,omitempty"`

	// QualityThreshold is the minimum reviewer score to approve a draft.
	QualityThreshold float64 `yaml:"quality_threshold,omitempty"`

	// MinPartialChars is the content length below which an exhausted
	// section is discarded instead of saved as partial.
	MinPartialChars int `yaml:"min_partial_chars,omitempty"`
}

// SetDefaults applies default values.
func (c *WorkflowConfig) SetDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 8
	}
	if c.QualityThreshold == 0 {
		c.QualityThreshold = 0.7
	}
	if c.MinPartialChars == 0 {
		c.MinPartialChars = 500
	}
}

// Validate checks the configuration for errors.
func (c *WorkflowConfig) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("quality_threshold must be in [0, 1], got %v", c.QualityThreshold)
	}
	if c.MinPartialChars < 0 {
		return fmt.Errorf("min_partial_chars must be non-negative, got %d", c.MinPartialChars)
	}
	return nil
}

// GenerationConfig configures section generation and prior-context reuse.
type GenerationConfig struct {
	// IncludeResearchContext injects the research context file into
	// agent prompts when present. Defaults to true.
	IncludeResearchContext *bool `yaml:"include_research_context,omitempty"`

	// PriorContextFiles is how many of the most recent output files are
	// indexed as prior context before generating a new section.
	PriorContextFiles int `yaml:"prior_context_files,omitempty"`

	// PriorContextMaxChars caps the characters taken from each prior file.
	PriorContextMaxChars int `yaml:"prior_context_max_chars,omitempty"`
}

// SetDefaults applies default values.
func (c *GenerationConfig) SetDefaults() {
	if c.IncludeResearchContext == nil {
		enabled := true
		c.IncludeResearchContext = &enabled
	}
	if c.PriorContextFiles == 0 {
		c.PriorContextFiles = 3
	}
	if c.PriorContextMaxChars == 0 {
		c.PriorContextMaxChars = 15000
	}
}

// Validate checks the configuration for errors.
func (c *GenerationConfig) Validate() error {
	if c.PriorContextFiles < 0 {
		return fmt.Errorf("prior_context_files must be non-negative, got %d", c.PriorContextFiles)
	}
	if c.PriorContextMaxChars < 0 {
		return fmt.Errorf("prior_context_max_chars must be non-negative, got %d", c.PriorContextMaxChars)
	}
	return nil
}

// IncludeContext reports whether the research context should be
// injected into prompts.
func (c *GenerationConfig) IncludeContext() bool {
	return c.IncludeResearchContext == nil || *c.IncludeResearchContext
}
