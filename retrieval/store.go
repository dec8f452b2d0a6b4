// Package retrieval turns documents into a searchable semantic index and
// answers questions grounded in the retrieved chunks.
package retrieval

import "context"

// Document is a unit of indexable text, already extracted from its source file.
type Document struct {
	ID    string
	Title string
	Text  string
}

// Chunk is a bounded span of document text used as a retrieval unit.
// Chunks are immutable once inserted.
type Chunk struct {
	ID         string
	DocumentID string
	Title      string
	Index      int
	Text       string
}

type SearchResult struct {
	Chunk Chunk
	Score float64
}

// VectorStore holds chunk embeddings and supports nearest-neighbour search.
// All vectors in one store share a single dimension; implementations reject
// mismatches on insert.
type VectorStore interface {
	// Insert appends chunks with their embeddings to the index.
	Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	// Replace atomically swaps the whole index for the given content.
	// Concurrent searches see either the previous index or the new one,
	// never a partially built state.
	Replace(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	// Search returns up to topK chunks by descending cosine similarity.
	// Ties are broken by insertion order, earlier chunks first.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
}
