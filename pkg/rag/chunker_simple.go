package rag

import (
	"strings"
)

// SimpleChunker implements basic line-based chunking.
//
// It splits content by lines first, then groups lines into chunks of the
// configured size. Chunks never split mid-line.
type SimpleChunker struct {
	size int
}

// NewSimpleChunker creates a new simple chunker.
func NewSimpleChunker(size int) *SimpleChunker {
	return &SimpleChunker{size: size}
}

// Chunk splits content into chunks based on line boundaries.
func (c *SimpleChunker) Chunk(content string) ([]Chunk, error) {
	lines := strings.Split(content, "\n")
	totalLines := len(lines)

	if len(content) <= c.size {
		return []Chunk{{
			Content:   content,
			Index:     0,
			Total:     1,
			StartLine: 1,
			EndLine:   totalLines,
		}}, nil
	}

	var chunks []Chunk
	var currentChunk strings.Builder
	chunkStartLine := 1
	currentLine := 1

	for _, line := range lines {
		lineWithNewline := line + "\n"

		if currentChunk.Len() > 0 && currentChunk.Len()+len(lineWithNewline) > c.size {
			chunks = append(chunks, Chunk{
				Content:   currentChunk.String(),
				Index:     len(chunks),
				StartLine: chunkStartLine,
				EndLine:   currentLine - 1,
			})

			currentChunk.Reset()
			chunkStartLine = currentLine
		}

		currentChunk.WriteString(lineWithNewline)
		currentLine++
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, Chunk{
			Content:   currentChunk.String(),
			Index:     len(chunks),
			StartLine: chunkStartLine,
			EndLine:   totalLines,
		})
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i].Total = total
	}

	return chunks, nil
}

func (c *SimpleChunker) Strategy() ChunkerStrategy {
	return ChunkerSimple
}

// Ensure SimpleChunker implements Chunker.
var _ Chunker = (*SimpleChunker)(nil)

// OverlappingChunker implements chunking with configurable overlap.
//
// Overlap preserves context at chunk boundaries, improving retrieval
// quality when relevant passages span two chunks. This is the default
// for bibliography indexing.
type OverlappingChunker struct {
	size    int
	overlap int
}

// NewOverlappingChunker creates a new overlapping chunker.
func NewOverlappingChunker(size, overlap int) *OverlappingChunker {
	if overlap <= 0 {
		overlap = size / 5
	}
	return &OverlappingChunker{size: size, overlap: overlap}
}

// Chunk splits content into overlapping chunks.
func (c *OverlappingChunker) Chunk(content string) ([]Chunk, error) {
	lines := strings.Split(content, "\n")
	totalLines := len(lines)

	if len(content) <= c.size {
		return []Chunk{{
			Content:   content,
			Index:     0,
			Total:     1,
			StartLine: 1,
			EndLine:   totalLines,
		}}, nil
	}

	var chunks []Chunk
	var currentChunk strings.Builder
	var overlapBuffer strings.Builder
	chunkStartLine := 1
	currentLine := 1
	var overlapStartLine int

	for _, line := range lines {
		lineWithNewline := line + "\n"

		currentChunk.WriteString(lineWithNewline)

		if currentChunk.Len() >= c.size {
			chunks = append(chunks, Chunk{
				Content:   currentChunk.String(),
				Index:     len(chunks),
				StartLine: chunkStartLine,
				EndLine:   currentLine,
			})

			// Collect trailing lines as overlap for the next chunk
			overlapBuffer.Reset()
			overlapSize := 0
			overlapStartLine = currentLine

			for i := currentLine - 1; i >= chunkStartLine && overlapSize < c.overlap; i-- {
				if i-1 < len(lines) {
					overlapLine := lines[i-1] + "\n"
					overlapSize += len(overlapLine)
					temp := overlapLine + overlapBuffer.String()
					overlapBuffer.Reset()
					overlapBuffer.WriteString(temp)
					overlapStartLine = i
				}
			}

			currentChunk.Reset()
			currentChunk.WriteString(overlapBuffer.String())
			chunkStartLine = overlapStartLine
		}

		currentLine++
	}

	// Emit the trailing chunk unless it is pure overlap of the previous one
	if currentChunk.Len() > overlapBuffer.Len() || len(chunks) == 0 {
		chunks = append(chunks, Chunk{
			Content:   currentChunk.String(),
			Index:     len(chunks),
			StartLine: chunkStartLine,
			EndLine:   totalLines,
		})
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i].Total = total
	}

	return chunks, nil
}

func (c *OverlappingChunker) Strategy() ChunkerStrategy {
	return ChunkerOverlapping
}

// Ensure OverlappingChunker implements Chunker.
var _ Chunker = (*OverlappingChunker)(nil)

// SemanticChunker splits at paragraph boundaries.
//
// It accumulates whole paragraphs until the target size is reached, so
// chunks align with the natural units of academic prose. Oversized
// paragraphs fall back to overlapping chunking.
type SemanticChunker struct {
	size    int
	overlap int
}

// NewSemanticChunker creates a new semantic chunker.
func NewSemanticChunker(size, overlap int) *SemanticChunker {
	return &SemanticChunker{size: size, overlap: overlap}
}

// Chunk splits content at paragraph boundaries.
func (c *SemanticChunker) Chunk(content string) ([]Chunk, error) {
	if len(content) <= c.size {
		return []Chunk{{
			Content:   content,
			Index:     0,
			Total:     1,
			StartLine: 1,
			EndLine:   countLines(content),
		}}, nil
	}

	paragraphs := strings.Split(content, "\n\n")

	var chunks []Chunk
	var current strings.Builder
	startLine := 1
	line := 1

	flush := func(endLine int) {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Content:   current.String(),
			Index:     len(chunks),
			StartLine: startLine,
			EndLine:   endLine,
		})
		current.Reset()
	}

	for _, para := range paragraphs {
		paraLines := countLines(para)

		// A single paragraph larger than the target gets the overlapping
		// treatment on its own.
		if len(para) > c.size {
			flush(line - 1)
			sub, err := NewOverlappingChunker(c.size, c.overlap).Chunk(para)
			if err != nil {
				return nil, err
			}
			for _, s := range sub {
				chunks = append(chunks, Chunk{
					Content:   s.Content,
					Index:     len(chunks),
					StartLine: line + s.StartLine - 1,
					EndLine:   line + s.EndLine - 1,
				})
			}
			line += paraLines + 1
			startLine = line
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > c.size {
			flush(line - 1)
			startLine = line
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		line += paraLines + 1
	}

	flush(countLines(content))

	total := len(chunks)
	for i := range chunks {
		chunks[i].Total = total
	}

	return chunks, nil
}

func (c *SemanticChunker) Strategy() ChunkerStrategy {
	return ChunkerSemantic
}

// Ensure SemanticChunker implements Chunker.
var _ Chunker = (*SemanticChunker)(nil)

func countLines(content string) int {
	if len(content) == 0 {
		return 0
	}
	lines := 1
	for _, r := range content {
		if r == '\n' {
			lines++
		}
	}
	return lines
}
