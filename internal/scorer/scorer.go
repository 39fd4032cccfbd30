package scorer

import (
	"context"
)

// Result is one ranked item.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Scorer ranks a fixed corpus against a query representation. Scorers hold
// no per-query state and are safe for concurrent use.
type Scorer interface {
	Name() string
	Score(ctx context.Context, query string, k int) ([]Result, error)
}

// IDs projects a result list onto its ids, in rank order.
func IDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
