// Package vector provides the vector storage backends for bibliography
// indexing: an embedded chromem store and a Qdrant client.
package vector

import "context"

// Result is a single similarity search hit.
type Result struct {
	// ID is the document identifier.
	ID string

	// Score is the similarity score (higher is more similar).
	Score float32

	// Content is the document text.
	Content string

	// Metadata holds the document metadata.
	Metadata map[string]any
}

// Provider stores and searches vector embeddings.
//
// Vectors are computed externally by the embedder; providers only store
// and compare them.
type Provider interface {
	// Upsert adds or updates a document with its vector embedding.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// Search finds the topK most similar vectors in a collection.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// SearchWithFilter combines vector similarity with metadata filtering.
	SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error)

	// Delete removes a document from a collection by ID.
	Delete(ctx context.Context, collection string, id string) error

	// DeleteByFilter removes all documents matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error

	// CreateCollection creates a collection with the given vector dimension.
	CreateCollection(ctx context.Context, collection string, vectorDimension int) error

	// DeleteCollection removes a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Name returns the provider name.
	Name() string

	// Close persists pending state and releases resources.
	Close() error
}
