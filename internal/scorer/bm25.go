package scorer

import (
	"context"

	"github.com/reclab-io/reclab/internal/index"
)

// BM25Scorer ranks lexically against an inverted index.
type BM25Scorer struct {
	Index *index.BM25Index
}

func NewBM25Scorer(idx *index.BM25Index) *BM25Scorer {
	return &BM25Scorer{Index: idx}
}

func (s *BM25Scorer) Name() string { return "bm25" }

func (s *BM25Scorer) Score(ctx context.Context, query string, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := s.Index.Search(query, k)
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{ID: h.ID, Score: h.Score}
	}
	return results, nil
}
