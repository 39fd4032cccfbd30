package scorer

import (
	"context"
	"fmt"

	"github.com/reclab-io/reclab/internal/index"
	"github.com/reclab-io/reclab/internal/llm"
)

// DenseScorer embeds the query and ranks by cosine similarity against a
// vector index.
type DenseScorer struct {
	Embedder llm.Embedder
	Index    *index.VectorIndex
}

func NewDenseScorer(embedder llm.Embedder, idx *index.VectorIndex) *DenseScorer {
	return &DenseScorer{Embedder: embedder, Index: idx}
}

func (s *DenseScorer) Name() string { return "dense" }

func (s *DenseScorer) Score(ctx context.Context, query string, k int) ([]Result, error) {
	vec, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.Index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{ID: h.ID, Score: h.Score}
	}
	return results, nil
}
