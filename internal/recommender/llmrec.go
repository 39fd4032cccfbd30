package recommender

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/llm"
	"github.com/reclab-io/reclab/internal/scorer"
)

// LLMRecommender prompts a generation model with the user's highest-rated
// items and resolves the suggested titles against the catalog. Suggestions
// that do not resolve are dropped. A malformed response is an error so the
// caller can fall back to the collaborative filter.
type LLMRecommender struct {
	LLM          llm.Client
	Catalog      map[string]dataset.Item
	Model        string
	PromptBudget int

	byTitle map[string]string
}

func NewLLMRecommender(client llm.Client, catalog map[string]dataset.Item, model string, promptBudget int) *LLMRecommender {
	byTitle := make(map[string]string, len(catalog))
	for id, it := range catalog {
		byTitle[normalizeTitle(it.Title)] = id
	}
	return &LLMRecommender{
		LLM:          client,
		Catalog:      catalog,
		Model:        model,
		PromptBudget: promptBudget,
		byTitle:      byTitle,
	}
}

const maxProfileItems = 20

// Recommend asks for k item suggestions given the user's rating profile.
func (r *LLMRecommender) Recommend(ctx context.Context, profile []dataset.Interaction, k int) ([]scorer.Result, error) {
	if len(profile) == 0 || k <= 0 {
		return nil, nil
	}

	liked := make([]dataset.Interaction, len(profile))
	copy(liked, profile)
	sort.Slice(liked, func(i, j int) bool { return liked[i].Rating > liked[j].Rating })
	if len(liked) > maxProfileItems {
		liked = liked[:maxProfileItems]
	}

	var b strings.Builder
	for _, in := range liked {
		it, ok := r.Catalog[in.ItemID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s (rated %.1f)\n", it.Title, in.Rating)
	}
	if b.Len() == 0 {
		return nil, fmt.Errorf("no profile item resolves against the catalog")
	}

	prompt := fmt.Sprintf(`A user rated the following items:
%s
Suggest %d other items from the same catalog this user would enjoy.
Respond with ONLY a JSON array of item title strings, exactly as they would
appear in the catalog. No commentary.`, b.String(), k)
	prompt = llm.TruncateToBudget(prompt, r.Model, r.PromptBudget)

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recommendations: %w", err)
	}

	titles, err := llm.ParseJSON[[]string](resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse title list: %w", err)
	}

	seen := make(map[string]bool, len(profile))
	for _, in := range profile {
		seen[in.ItemID] = true
	}

	results := make([]scorer.Result, 0, k)
	for i, title := range titles {
		id, ok := r.byTitle[normalizeTitle(title)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		// Rank position stands in for a score; earlier suggestions win.
		results = append(results, scorer.Result{ID: id, Score: float64(len(titles) - i)})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
