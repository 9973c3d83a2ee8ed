// Package rag indexes the bibliography into a vector store and answers
// similarity queries for the agents.
package rag

import (
	"fmt"

	"marco/pkg/config"
)

// ChunkerStrategy identifies a chunking strategy.
type ChunkerStrategy string

const (
	// ChunkerSimple splits content by fixed character count at line
	// boundaries. Fast but loses context at chunk edges.
	ChunkerSimple ChunkerStrategy = "simple"

	// ChunkerOverlapping splits with overlap between chunks. Better for
	// retrieval as context is preserved at boundaries.
	ChunkerOverlapping ChunkerStrategy = "overlapping"

	// ChunkerSemantic splits at paragraph boundaries. Best quality for
	// flowing academic prose.
	ChunkerSemantic ChunkerStrategy = "semantic"
)

// Chunk is one piece of a split document.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// Index is the zero-based position of this chunk in the document.
	Index int

	// Total is the number of chunks the document was split into.
	Total int

	// StartLine and EndLine locate the chunk in the source (1-indexed).
	StartLine int
	EndLine   int
}

// Chunker splits document content into pieces for indexing.
//
// Chunking drives retrieval quality: too small loses context, too large
// dilutes relevance.
type Chunker interface {
	// Chunk splits content into pieces ordered by position.
	Chunk(content string) ([]Chunk, error)

	// Strategy returns the chunker strategy name.
	Strategy() ChunkerStrategy
}

// NewChunker creates a chunker from configuration.
func NewChunker(cfg *config.ChunkingConfig) (Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	switch ChunkerStrategy(cfg.Strategy) {
	case ChunkerSimple:
		return NewSimpleChunker(cfg.ChunkSize), nil
	case ChunkerOverlapping:
		return NewOverlappingChunker(cfg.ChunkSize, cfg.Overlap), nil
	case ChunkerSemantic:
		return NewSemanticChunker(cfg.ChunkSize, cfg.Overlap), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy: %q", cfg.Strategy)
	}
}
