package faq

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/embedding"
)

// vectorCutoff is the minimum cosine score for a vector hit to count as
// an answer.
const vectorCutoff = 0.65

// VectorIndex is the vector backend the retriever searches against.
// *VectorStore implements it over Qdrant.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dimension uint64) error
	UpsertEntry(ctx context.Context, entry Entry, vector []float32) error
	Nearest(ctx context.Context, vector []float32, topK uint64) ([]Hit, error)
}

// Retriever answers questions from the loaded corpus. When an embedder
// and vector store are wired in it uses semantic search; otherwise, or
// when the backend fails, it falls back to lexical matching.
type Retriever struct {
	entries  []Entry
	embedder embedding.Provider
	store    VectorIndex
	logger   *zap.Logger
}

// NewRetriever builds a retriever over the given entries. embedder and
// store may both be nil for lexical-only operation.
func NewRetriever(entries []Entry, embedder embedding.Provider, store VectorIndex, logger *zap.Logger) *Retriever {
	return &Retriever{entries: entries, embedder: embedder, store: store, logger: logger}
}

// Index embeds every corpus question and upserts it into the vector
// store. A no-op in lexical-only mode.
func (r *Retriever) Index(ctx context.Context) error {
	if r.embedder == nil || r.store == nil {
		return nil
	}
	questions := make([]string, len(r.entries))
	for i, e := range r.entries {
		questions[i] = e.Question
	}
	vectors, err := r.embedder.Embed(ctx, questions)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) == 0 {
		return nil
	}
	dim := r.embedder.Dimension()
	if dim <= 0 {
		dim = len(vectors[0])
	}
	if err := r.store.EnsureCollection(ctx, uint64(dim)); err != nil {
		return err
	}
	for i, e := range r.entries {
		if err := r.store.UpsertEntry(ctx, e, vectors[i]); err != nil {
			return fmt.Errorf("upsert %q: %w", e.Question, err)
		}
	}
	r.logger.Info("faq corpus indexed", zap.Int("entries", len(r.entries)))
	return nil
}

// Answer returns the best answer for a query, or ErrNoAnswer.
func (r *Retriever) Answer(ctx context.Context, query string) (string, error) {
	if r.embedder != nil && r.store != nil {
		answer, err := r.semantic(ctx, query)
		if err == nil {
			return answer, nil
		}
		if err == ErrNoAnswer {
			return "", err
		}
		r.logger.Warn("semantic lookup failed, falling back to lexical", zap.Error(err))
	}
	entry, _, err := lexicalMatch(r.entries, query)
	if err != nil {
		return "", err
	}
	return entry.Answer, nil
}

func (r *Retriever) semantic(ctx context.Context, query string) (string, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return "", ErrNoAnswer
	}
	hits, err := r.store.Nearest(ctx, vectors[0], 1)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 || hits[0].Score < vectorCutoff {
		return "", ErrNoAnswer
	}
	return hits[0].Entry.Answer, nil
}

// Questions lists the corpus questions in sorted order.
func (r *Retriever) Questions() []string {
	return sortedQuestions(r.entries)
}
