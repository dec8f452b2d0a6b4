package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/embeddings"
	"github.com/clinicdesk/booking-agent/llm"
)

const defaultTopK = 5

// NoDocumentsReply is returned verbatim when the index is empty; the
// completion service is not called in that case.
const NoDocumentsReply = "I don't have any documents loaded yet. Please add the clinic documents first so I can answer questions about services, policies, and pricing."

type Options struct {
	TopK         int
	ChunkSize    int
	ChunkOverlap int
}

// Answer carries the grounded reply plus the chunk ids that backed it.
type Answer struct {
	Text     string
	ChunkIDs []string
}

// Retriever owns the vector index and the question-answering path over it.
type Retriever struct {
	store    VectorStore
	embedder embeddings.Embedder
	llm      llm.Client
	logger   zerolog.Logger
	opts     Options
}

func New(store VectorStore, embedder embeddings.Embedder, llmClient llm.Client, logger zerolog.Logger, opts Options) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = opts.ChunkSize / 5
	}

	return &Retriever{
		store:    store,
		embedder: embedder,
		llm:      llmClient,
		logger:   logger,
		opts:     opts,
	}
}

// Index chunks and embeds each document and extends the vector index.
// Documents are not deduplicated; callers decide when to rebuild instead.
func (r *Retriever) Index(ctx context.Context, docs []Document) (int, error) {
	return r.ingest(ctx, docs, r.store.Insert)
}

// Rebuild replaces the whole index with the given documents in one atomic
// swap, so concurrent queries never see a half-built index.
func (r *Retriever) Rebuild(ctx context.Context, docs []Document) (int, error) {
	return r.ingest(ctx, docs, r.store.Replace)
}

func (r *Retriever) ingest(ctx context.Context, docs []Document, apply func(context.Context, []Chunk, [][]float32) error) (int, error) {
	if r.embedder == nil {
		return 0, fmt.Errorf("embedder is not configured")
	}

	chunks := make([]Chunk, 0)
	texts := make([]string, 0)
	for _, doc := range docs {
		pieces := SplitText(doc.Text, r.opts.ChunkSize, r.opts.ChunkOverlap)
		for idx, piece := range pieces {
			chunks = append(chunks, Chunk{
				ID:         uuid.New().String(),
				DocumentID: doc.ID,
				Title:      doc.Title,
				Index:      idx,
				Text:       piece,
			})
			texts = append(texts, piece)
		}
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
	}

	if err := apply(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	r.logger.Info().Int("chunks", len(chunks)).Int("documents", len(docs)).Msg("indexed documents")
	return len(chunks), nil
}

// Answer embeds the query, retrieves the top-k chunks, and asks the
// completion service for a grounded reply. On an empty index it returns
// NoDocumentsReply without touching the completion service.
func (r *Retriever) Answer(ctx context.Context, query string, history []llm.Message) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, fmt.Errorf("query cannot be empty")
	}
	if r.embedder == nil || r.store == nil || r.llm == nil {
		return Answer{}, fmt.Errorf("retriever is not fully configured")
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("count indexed chunks: %w", err)
	}
	if count == 0 {
		return Answer{Text: NoDocumentsReply}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return Answer{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return Answer{}, fmt.Errorf("embedder returned no vectors")
	}

	results, err := r.store.Search(ctx, vectors[0], r.opts.TopK)
	if err != nil {
		return Answer{}, fmt.Errorf("vector search: %w", err)
	}
	if len(results) == 0 {
		return Answer{Text: NoDocumentsReply}, nil
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: answerSystemPrompt()})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: formatAnswerPrompt(query, results)})

	text, err := r.llm.Generate(ctx, messages)
	if err != nil {
		return Answer{}, fmt.Errorf("llm generate: %w", err)
	}

	chunkIDs := make([]string, 0, len(results))
	for _, res := range results {
		chunkIDs = append(chunkIDs, res.Chunk.ID)
	}

	return Answer{Text: strings.TrimSpace(text), ChunkIDs: chunkIDs}, nil
}

func answerSystemPrompt() string {
	return "You are a helpful clinic assistant. Answer questions using the provided document context. If the context does not contain the answer, say so politely instead of guessing. Be concise."
}

func formatAnswerPrompt(query string, results []SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Context from clinic documents:\n")
	for i, res := range results {
		sb.WriteString(fmt.Sprintf("[Context %d] %s\n%s\n\n", i+1, res.Chunk.Title, res.Chunk.Text))
	}
	sb.WriteString("Question:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer using only the context above. If it lacks the answer, say you don't have that information in the documents.")
	return sb.String()
}
