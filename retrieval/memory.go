package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory vector index using brute-force cosine
// similarity. The index lives only for the lifetime of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	chunks    []Chunk
	vectors   [][]float32
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Insert(_ context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(chunks, vectors)
}

func (s *MemoryStore) Replace(_ context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	// Build the replacement aside so searches never observe a partial index.
	next := &MemoryStore{}
	if err := next.appendLocked(chunks, vectors); err != nil {
		return err
	}

	s.mu.Lock()
	s.dimension = next.dimension
	s.chunks = next.chunks
	s.vectors = next.vectors
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) appendLocked(chunks []Chunk, vectors [][]float32) error {
	for i, vec := range vectors {
		if len(vec) == 0 {
			return fmt.Errorf("empty embedding for chunk %d", i)
		}
		if s.dimension == 0 {
			s.dimension = len(vec)
		}
		if len(vec) != s.dimension {
			return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(vec))
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.vectors))
	for i := range s.vectors {
		scores[i] = scored{idx: i, score: cosine(s.vectors[i], vector)}
	}

	// Stable on insertion index: equal scores resolve to the earlier chunk.
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].idx < scores[j].idx
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]SearchResult, 0, topK)
	for _, sc := range scores[:topK] {
		results = append(results, SearchResult{Chunk: s.chunks[sc.idx], Score: sc.score})
	}
	return results, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ VectorStore = (*MemoryStore)(nil)
