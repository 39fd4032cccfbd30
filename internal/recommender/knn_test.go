package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclab-io/reclab/internal/dataset"
)

// Two taste clusters: users 1-2 like sci-fi items a/b, users 3-4 like
// romance items x/y. User 1 has not rated b yet.
func clusteredTrain() []dataset.Interaction {
	return []dataset.Interaction{
		{UserID: "1", ItemID: "a", Rating: 5},
		{UserID: "1", ItemID: "x", Rating: 1},
		{UserID: "2", ItemID: "a", Rating: 5},
		{UserID: "2", ItemID: "b", Rating: 5},
		{UserID: "2", ItemID: "x", Rating: 1},
		{UserID: "3", ItemID: "x", Rating: 5},
		{UserID: "3", ItemID: "y", Rating: 4},
		{UserID: "3", ItemID: "a", Rating: 1},
		{UserID: "4", ItemID: "x", Rating: 5},
		{UserID: "4", ItemID: "y", Rating: 5},
		{UserID: "4", ItemID: "b", Rating: 2},
	}
}

func TestItemKNNRecommendsFromTasteCluster(t *testing.T) {
	m := TrainItemKNN(clusteredTrain(), 10)

	recs := m.Recommend("1", 2)
	require.NotEmpty(t, recs)
	assert.Equal(t, "b", recs[0].ID, "user 1 should get the unrated sci-fi item first")
}

func TestItemKNNSkipsSeenItems(t *testing.T) {
	m := TrainItemKNN(clusteredTrain(), 10)

	for _, rec := range m.Recommend("2", 10) {
		assert.NotContains(t, []string{"a", "b", "x"}, rec.ID)
	}
}

func TestItemKNNUnknownUser(t *testing.T) {
	m := TrainItemKNN(clusteredTrain(), 10)
	assert.Nil(t, m.Recommend("nobody", 5))
	assert.Nil(t, m.Recommend("1", 0))

	_, ok := m.Predict("nobody", "a")
	assert.False(t, ok)
}

func TestItemKNNPredict(t *testing.T) {
	m := TrainItemKNN(clusteredTrain(), 10)

	pred, ok := m.Predict("1", "b")
	require.True(t, ok)
	// User 1 mean is 3.0; b neighbors a (liked), so prediction sits above
	// the mean.
	assert.Greater(t, pred, 3.0)

	// Item with no rated neighbors falls back to the user mean.
	pred, ok = m.Predict("1", "unknown-item")
	require.True(t, ok)
	assert.InDelta(t, 3.0, pred, 1e-9)
}

func TestItemKNNNeighborTruncation(t *testing.T) {
	m := TrainItemKNN(clusteredTrain(), 1)
	for item, ns := range m.neighbors {
		assert.LessOrEqual(t, len(ns), 1, "item %s", item)
	}
}

func TestItemKNNDeterministic(t *testing.T) {
	a := TrainItemKNN(clusteredTrain(), 10)
	b := TrainItemKNN(clusteredTrain(), 10)
	assert.Equal(t, a.Recommend("1", 5), b.Recommend("1", 5))
}
