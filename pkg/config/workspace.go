package config

import (
	"fmt"
	"path/filepath"
)

// WorkspaceConfig holds the on-disk layout of a research workspace.
//
// All paths are relative to the working directory unless absolute. The
// scaffold manifest creates the directories and default files on `marco init`.
type WorkspaceConfig struct {
	// Bibliography is the folder holding source documents (PDF, DOCX, XLSX).
	Bibliography string `yaml:"bibliography,omitempty"`

	// Outline is the section outline file ("2.1 Title" lines).
	Outline string `yaml:"outline,omitempty"`

	// CitationRules is the prose file describing the citation policy.
	CitationRules string `yaml:"citation_rules,omitempty"`

	// Variables is the research-variables file (one phrase per line,
	// '#' comments).
	Variables string `yaml:"variables,omitempty"`

	// ResearchContext is an optional prose file describing the study.
	ResearchContext string `yaml:"research_context,omitempty"`

	// StyleExample is an optional exemplar document (PDF, DOCX or text)
	// whose prose the style editor imitates.
	StyleExample string `yaml:"style_example,omitempty"`

	// Outputs is the folder where generated sections are written.
	Outputs string `yaml:"outputs,omitempty"`

	// DataDir is the folder for derived data (vector store persistence).
	DataDir string `yaml:"data_dir,omitempty"`
}

// SetDefaults applies default values.
func (c *WorkspaceConfig) SetDefaults() {
	if c.Bibliography == "" {
		c.Bibliography = "bibliography"
	}
	if c.Outline == "" {
		c.Outline = filepath.Join("config", "outline.txt")
	}
	if c.CitationRules == "" {
		c.CitationRules = filepath.Join("config", "citation_rules.txt")
	}
	if c.Variables == "" {
		c.Variables = filepath.Join("config", "variables.txt")
	}
	if c.ResearchContext == "" {
		c.ResearchContext = filepath.Join("config", "research_context.txt")
	}
	if c.StyleExample == "" {
		c.StyleExample = filepath.Join("config", "style_example.pdf")
	}
	if c.Outputs == "" {
		c.Outputs = "outputs"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

// Validate checks the configuration for errors.
func (c *WorkspaceConfig) Validate() error {
	if c.Bibliography == "" {
		return fmt.Errorf("bibliography path must not be empty")
	}
	if c.Outline == "" {
		return fmt.Errorf("outline path must not be empty")
	}
	if c.Outputs == "" {
		return fmt.Errorf("outputs path must not be empty")
	}
	return nil
}

// VectorsDir returns the vector store persistence directory.
func (c *WorkspaceConfig) VectorsDir() string {
	return filepath.Join(c.DataDir, "vectors")
}
