package recommender

import (
	"context"
	"fmt"

	"github.com/reclab-io/reclab/internal/llm"
	"github.com/reclab-io/reclab/internal/scorer"
)

// Stage transforms a candidate list. Stages compose into a Pipeline and
// run in order over the output of the previous one.
type Stage interface {
	Name() string
	Apply(ctx context.Context, query string, candidates []scorer.Result) ([]scorer.Result, error)
}

type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

func (p *Pipeline) Run(ctx context.Context, query string, candidates []scorer.Result) ([]scorer.Result, error) {
	out := candidates
	for _, st := range p.stages {
		var err error
		out, err = st.Apply(ctx, query, out)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", st.Name(), err)
		}
	}
	return out, nil
}

// FilterSeen drops candidates the user already interacted with.
type FilterSeen struct {
	Seen map[string]bool
}

func (f *FilterSeen) Name() string { return "filter_seen" }

func (f *FilterSeen) Apply(ctx context.Context, query string, candidates []scorer.Result) ([]scorer.Result, error) {
	out := candidates[:0:0]
	for _, c := range candidates {
		if !f.Seen[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

// Truncate bounds the candidate list.
type Truncate struct {
	Limit int
}

func (t *Truncate) Name() string { return "truncate" }

func (t *Truncate) Apply(ctx context.Context, query string, candidates []scorer.Result) ([]scorer.Result, error) {
	if t.Limit > 0 && len(candidates) > t.Limit {
		return candidates[:t.Limit], nil
	}
	return candidates, nil
}

// Rerank reorders candidates with a reranker. Describe maps a candidate id
// to the text shown to the model; ids with no description pass through
// as-is.
type Rerank struct {
	Reranker llm.Reranker
	Describe func(id string) string
}

func (r *Rerank) Name() string { return "rerank" }

func (r *Rerank) Apply(ctx context.Context, query string, candidates []scorer.Result) ([]scorer.Result, error) {
	if len(candidates) < 2 {
		return candidates, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		desc := r.Describe(c.ID)
		if desc == "" {
			desc = c.ID
		}
		docs[i] = desc
	}

	order, err := r.Reranker.Rank(ctx, query, docs)
	if err != nil {
		return nil, err
	}

	out := make([]scorer.Result, 0, len(candidates))
	for _, idx := range order {
		if idx < 0 || idx >= len(candidates) {
			continue
		}
		out = append(out, candidates[idx])
	}
	return out, nil
}
