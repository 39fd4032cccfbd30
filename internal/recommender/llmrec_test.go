package recommender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclab-io/reclab/internal/dataset"
)

type mockLLM struct {
	response string
	err      error
	prompt   string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func testCatalog() map[string]dataset.Item {
	return map[string]dataset.Item{
		"1": {ID: "1", Title: "Blade Runner"},
		"2": {ID: "2", Title: "Alien"},
		"3": {ID: "3", Title: "The Notebook"},
	}
}

func profile() []dataset.Interaction {
	return []dataset.Interaction{
		{UserID: "u", ItemID: "1", Rating: 5},
	}
}

func TestLLMRecommenderResolvesTitles(t *testing.T) {
	mock := &mockLLM{response: `["Alien", "The Notebook"]`}
	r := NewLLMRecommender(mock, testCatalog(), "gpt-4o-mini", 4000)

	recs, err := r.Recommend(context.Background(), profile(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID)
	assert.Equal(t, "3", recs[1].ID)
	assert.Greater(t, recs[0].Score, recs[1].Score)

	assert.Contains(t, mock.prompt, "Blade Runner")
}

func TestLLMRecommenderDropsUnknownAndSeen(t *testing.T) {
	mock := &mockLLM{response: `["Blade Runner", "Made Up Movie", "alien"]`}
	r := NewLLMRecommender(mock, testCatalog(), "gpt-4o-mini", 4000)

	recs, err := r.Recommend(context.Background(), profile(), 5)
	require.NoError(t, err)
	// Blade Runner is in the profile, Made Up Movie is not in the catalog;
	// title match is case-insensitive.
	require.Len(t, recs, 1)
	assert.Equal(t, "2", recs[0].ID)
}

func TestLLMRecommenderMalformedResponse(t *testing.T) {
	r := NewLLMRecommender(&mockLLM{response: "Sure! Here are some ideas."}, testCatalog(), "gpt-4o-mini", 4000)

	_, err := r.Recommend(context.Background(), profile(), 3)
	assert.Error(t, err)
}

func TestLLMRecommenderAPIError(t *testing.T) {
	r := NewLLMRecommender(&mockLLM{err: errors.New("timeout")}, testCatalog(), "gpt-4o-mini", 4000)

	_, err := r.Recommend(context.Background(), profile(), 3)
	assert.Error(t, err)
}

func TestLLMRecommenderEmptyProfile(t *testing.T) {
	r := NewLLMRecommender(&mockLLM{}, testCatalog(), "gpt-4o-mini", 4000)

	recs, err := r.Recommend(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestLLMRecommenderProfileOutsideCatalog(t *testing.T) {
	r := NewLLMRecommender(&mockLLM{response: `["Alien"]`}, testCatalog(), "gpt-4o-mini", 4000)

	_, err := r.Recommend(context.Background(), []dataset.Interaction{
		{UserID: "u", ItemID: "no-such-item", Rating: 5},
	}, 3)
	assert.Error(t, err)
}

func TestLLMRecommenderMarkdownWrappedResponse(t *testing.T) {
	mock := &mockLLM{response: "```json\n[\"Alien\"]\n```"}
	r := NewLLMRecommender(mock, testCatalog(), "gpt-4o-mini", 4000)

	recs, err := r.Recommend(context.Background(), profile(), 3)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2", recs[0].ID)
}
