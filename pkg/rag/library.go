package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"marco/pkg/embedders"
	"marco/pkg/vector"
)

// Content kinds stored in chunk metadata.
const (
	KindBibliography = "bibliography"
	KindPriorContext = "prior_context"
)

// PriorContextSource marks chunks derived from previously generated
// sections. They are replaced wholesale before each generation run.
const PriorContextSource = "prior_context"

// Library indexes the bibliography into a vector collection and answers
// similarity queries for the agents.
type Library struct {
	store      vector.Provider
	embedder   embedders.Embedder
	chunker    Chunker
	parsers    *ParserRegistry
	collection string
}

// NewLibrary creates a bibliography library.
func NewLibrary(store vector.Provider, embedder embedders.Embedder, chunker Chunker, collection string) *Library {
	return &Library{
		store:      store,
		embedder:   embedder,
		chunker:    chunker,
		parsers:    NewParserRegistry(),
		collection: collection,
	}
}

// IndexStats summarizes an indexing run.
type IndexStats struct {
	Files   int
	Chunks  int
	Skipped []string
}

// IndexFolder parses, chunks, embeds and stores every supported document
// in the folder. Documents already indexed under the same path are
// replaced, so re-running converges instead of duplicating.
func (l *Library) IndexFolder(ctx context.Context, folder string) (IndexStats, error) {
	var stats IndexStats

	entries, err := os.ReadDir(folder)
	if err != nil {
		return stats, fmt.Errorf("failed to read bibliography folder %s: %w", folder, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if !l.parsers.CanParse(path) {
			stats.Skipped = append(stats.Skipped, entry.Name())
			continue
		}

		chunks, err := l.IndexFile(ctx, path)
		if err != nil {
			slog.Warn("Failed to index document", "path", path, "error", err)
			stats.Skipped = append(stats.Skipped, entry.Name())
			continue
		}

		stats.Files++
		stats.Chunks += chunks
		slog.Info("Indexed document", "path", path, "chunks", chunks)
	}

	return stats, nil
}

// IndexFile indexes a single document and returns the number of chunks
// stored. Prior chunks for the same path are removed first.
func (l *Library) IndexFile(ctx context.Context, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	result, err := l.parsers.ParseDocument(ctx, path, info.Size())
	if err != nil {
		return 0, err
	}
	if !result.Success {
		return 0, fmt.Errorf("failed to parse %s: %s", path, result.Error)
	}
	if strings.TrimSpace(result.Content) == "" {
		return 0, fmt.Errorf("document %s produced no text", path)
	}

	// Replace any chunks previously indexed for this path
	if err := l.store.DeleteByFilter(ctx, l.collection, map[string]any{"path": path}); err != nil {
		slog.Debug("No previous chunks to replace", "path", path, "error", err)
	}

	chunks, err := l.chunker.Chunk(result.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk %s: %w", path, err)
	}

	for _, chunk := range chunks {
		embedding, err := l.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk %d of %s: %w", chunk.Index, path, err)
		}

		metadata := map[string]any{
			"content":     chunk.Content,
			"source":      result.Title,
			"path":        path,
			"chunk_index": chunk.Index,
			"chunk_total": chunk.Total,
			"kind":        KindBibliography,
		}

		id := uuid.NewString()
		if err := l.store.Upsert(ctx, l.collection, id, embedding, metadata); err != nil {
			return 0, fmt.Errorf("failed to store chunk %d of %s: %w", chunk.Index, path, err)
		}
	}

	return len(chunks), nil
}

// Passage is one retrieved piece of source material.
type Passage struct {
	Content string
	Source  string
	Score   float32
	Kind    string
}

// Query embeds the query text and returns the most similar passages.
func (l *Library) Query(ctx context.Context, query string, topK int) ([]Passage, error) {
	embedding, err := l.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := l.store.Search(ctx, l.collection, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return toPassages(results), nil
}

// QuerySection retrieves passages relevant to a section by combining the
// section title with the research variables.
func (l *Library) QuerySection(ctx context.Context, sectionTitle string, variables []string, topK int) ([]Passage, error) {
	parts := append([]string{sectionTitle}, variables...)
	return l.Query(ctx, strings.Join(parts, " "), topK)
}

func toPassages(results []vector.Result) []Passage {
	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		source := "Unknown"
		if s, ok := r.Metadata["source"].(string); ok && s != "" {
			source = s
		}
		kind := ""
		if k, ok := r.Metadata["kind"].(string); ok {
			kind = k
		}
		passages = append(passages, Passage{
			Content: r.Content,
			Source:  source,
			Score:   r.Score,
			Kind:    kind,
		})
	}
	return passages
}

// Sources returns the distinct source titles currently indexed.
func (l *Library) Sources(ctx context.Context, probe string, topK int) ([]string, error) {
	passages, err := l.Query(ctx, probe, topK)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var sources []string
	for _, p := range passages {
		if p.Kind != KindBibliography || seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		sources = append(sources, p.Source)
	}
	sort.Strings(sources)
	return sources, nil
}

// SetPriorContext replaces the prior-context chunks with the given
// content. Passing empty content just clears them.
func (l *Library) SetPriorContext(ctx context.Context, content string) (int, error) {
	if err := l.ClearPriorContext(ctx); err != nil {
		return 0, err
	}

	if strings.TrimSpace(content) == "" {
		return 0, nil
	}

	chunks, err := l.chunker.Chunk(content)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk prior context: %w", err)
	}

	for _, chunk := range chunks {
		embedding, err := l.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to embed prior context chunk %d: %w", chunk.Index, err)
		}

		metadata := map[string]any{
			"content":     chunk.Content,
			"source":      PriorContextSource,
			"path":        PriorContextSource,
			"chunk_index": chunk.Index,
			"chunk_total": chunk.Total,
			"kind":        KindPriorContext,
		}

		id := fmt.Sprintf("%s_%d_%s", PriorContextSource, chunk.Index, uuid.NewString()[:8])
		if err := l.store.Upsert(ctx, l.collection, id, embedding, metadata); err != nil {
			return 0, fmt.Errorf("failed to store prior context chunk %d: %w", chunk.Index, err)
		}
	}

	slog.Info("Prior context indexed", "chunks", len(chunks))
	return len(chunks), nil
}

// ClearPriorContext removes prior-context chunks, keeping the
// bibliography intact.
func (l *Library) ClearPriorContext(ctx context.Context) error {
	if err := l.store.DeleteByFilter(ctx, l.collection, map[string]any{"kind": KindPriorContext}); err != nil {
		return fmt.Errorf("failed to clear prior context: %w", err)
	}
	return nil
}

// Stats describes the state of the library collection.
type Stats struct {
	TotalChunks int
	Collection  string
}

// Stats returns collection statistics.
func (l *Library) Stats(ctx context.Context) (Stats, error) {
	count, err := l.store.Count(ctx, l.collection)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalChunks: count, Collection: l.collection}, nil
}

// Clear removes the entire collection, bibliography included.
func (l *Library) Clear(ctx context.Context) error {
	if err := l.store.DeleteCollection(ctx, l.collection); err != nil {
		return fmt.Errorf("failed to clear library: %w", err)
	}
	return nil
}
