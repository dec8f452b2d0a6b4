package retrieval

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore is a pgvector-backed VectorStore for deployments that want
// the index to survive restarts. The in-memory store remains the default.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewPostgresStore(pool *pgxpool.Pool, dimension int) *PostgresStore {
	return &PostgresStore{pool: pool, dimension: dimension}
}

// EnsureSchema creates the pgvector extension and the chunk table. The seq
// column records insertion order for similarity tie-breaks.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id TEXT NOT NULL,
			title TEXT,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			seq BIGSERIAL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.dimension),
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding ON document_chunks USING ivfflat (embedding vector_cosine_ops)",
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertChunks(ctx, tx, chunks, vectors, s.dimension); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM document_chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if err := insertChunks(ctx, tx, chunks, vectors, s.dimension); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertChunks(ctx context.Context, tx pgx.Tx, chunks []Chunk, vectors [][]float32, dimension int) error {
	for i := range chunks {
		if dimension > 0 && len(vectors[i]) != dimension {
			return fmt.Errorf("embedding dimension mismatch for chunk %d: expected %d, got %d", i, dimension, len(vectors[i]))
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, title, chunk_index, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, chunks[i].ID, chunks[i].DocumentID, chunks[i].Title, chunks[i].Index, chunks[i].Text, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, title, chunk_index, content,
		       (embedding <=> $1::vector) AS distance
		FROM document_chunks
		ORDER BY embedding <=> $1::vector, seq
		LIMIT $2
	`, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, topK)
	for rows.Next() {
		var (
			chunk    Chunk
			distance float64
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Title, &chunk.Index, &chunk.Text, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		results = append(results, SearchResult{Chunk: chunk, Score: 1 - distance})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return results, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM document_chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

var _ VectorStore = (*PostgresStore)(nil)
