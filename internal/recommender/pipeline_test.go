package recommender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclab-io/reclab/internal/scorer"
)

type reverseReranker struct{ err error }

func (r *reverseReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if r.err != nil {
		return nil, r.err
	}
	order := make([]int, len(docs))
	for i := range docs {
		order[i] = len(docs) - 1 - i
	}
	return order, nil
}

func candidates(ids ...string) []scorer.Result {
	out := make([]scorer.Result, len(ids))
	for i, id := range ids {
		out[i] = scorer.Result{ID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	p := NewPipeline(
		&FilterSeen{Seen: map[string]bool{"b": true}},
		&Truncate{Limit: 2},
	)

	out, err := p.Run(context.Background(), "q", candidates("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, scorer.IDs(out))
}

func TestFilterSeenKeepsOrder(t *testing.T) {
	f := &FilterSeen{Seen: map[string]bool{"x": true}}
	out, err := f.Apply(context.Background(), "q", candidates("x", "a", "x", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, scorer.IDs(out))
}

func TestTruncateNoLimit(t *testing.T) {
	tr := &Truncate{}
	out, err := tr.Apply(context.Background(), "q", candidates("a", "b"))
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestRerankStage(t *testing.T) {
	r := &Rerank{
		Reranker: &reverseReranker{},
		Describe: func(id string) string { return "item " + id },
	}

	out, err := r.Apply(context.Background(), "q", candidates("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, scorer.IDs(out))
}

func TestRerankStageSkipsTrivialLists(t *testing.T) {
	r := &Rerank{
		Reranker: &reverseReranker{err: errors.New("should not be called")},
		Describe: func(id string) string { return id },
	}

	out, err := r.Apply(context.Background(), "q", candidates("only"))
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, scorer.IDs(out))
}

func TestPipelineStageErrorPropagates(t *testing.T) {
	p := NewPipeline(&Rerank{
		Reranker: &reverseReranker{err: errors.New("boom")},
		Describe: func(id string) string { return id },
	})

	_, err := p.Run(context.Background(), "q", candidates("a", "b"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rerank")
}
