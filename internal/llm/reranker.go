package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ListwiseReranker asks the generation model to reorder candidates by
// relevance in a single prompt.
type ListwiseReranker struct {
	LLM Client
}

func NewListwiseReranker(client Client) *ListwiseReranker {
	return &ListwiseReranker{LLM: client}
}

// Rank returns a permutation-ish index list over docs, most relevant first.
// Indices the model invents are dropped, duplicates keep their first
// occurrence, and candidates the model omits are appended in input order.
// On API failure the input order comes back unchanged so a rerank pass can
// never lose candidates.
func (r *ListwiseReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) == 1 {
		return []int{0}, nil
	}

	var list strings.Builder
	for i, d := range docs {
		content := d
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Fprintf(&list, "[%d] %s\n", i, content)
	}

	prompt := fmt.Sprintf(`You are a recommendation relevance judge.
User profile: %s

Candidate items:
%s
Rank the candidate items above by how well they match the user profile.
Output ONLY the indices of the items in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, query, list.String())

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return identityOrder(len(docs)), nil
	}

	return normalizeIndices(parseIndices(resp), len(docs)), nil
}

func identityOrder(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

var indexPattern = regexp.MustCompile(`\d+`)

func parseIndices(s string) []int {
	matches := indexPattern.FindAllString(s, -1)
	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		if i, err := strconv.Atoi(m); err == nil {
			indices = append(indices, i)
		}
	}
	return indices
}

// normalizeIndices drops out-of-range values, dedupes keeping first
// occurrence, and appends any index the model never mentioned.
func normalizeIndices(indices []int, n int) []int {
	seen := make(map[int]bool, n)
	out := make([]int, 0, n)
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			out = append(out, i)
		}
	}
	return out
}
