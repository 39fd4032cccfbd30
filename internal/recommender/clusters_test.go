package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclab-io/reclab/internal/dataset"
)

// Two disjoint taste groups: {a,b,c} co-liked by users 1-2, {x,y,z}
// co-liked by users 3-4.
func twoGroupInteractions() []dataset.Interaction {
	return []dataset.Interaction{
		{UserID: "1", ItemID: "a", Rating: 5},
		{UserID: "1", ItemID: "b", Rating: 5},
		{UserID: "1", ItemID: "c", Rating: 4},
		{UserID: "2", ItemID: "a", Rating: 4},
		{UserID: "2", ItemID: "b", Rating: 5},
		{UserID: "2", ItemID: "c", Rating: 5},
		{UserID: "3", ItemID: "x", Rating: 5},
		{UserID: "3", ItemID: "y", Rating: 4},
		{UserID: "3", ItemID: "z", Rating: 5},
		{UserID: "4", ItemID: "x", Rating: 4},
		{UserID: "4", ItemID: "y", Rating: 5},
		{UserID: "4", ItemID: "z", Rating: 4},
	}
}

func TestClustersSeparateDisjointGroups(t *testing.T) {
	c := BuildItemClusters(twoGroupInteractions(), 4.0)
	assert.Equal(t, 2, c.Len())

	related := c.Related("a", 10)
	assert.ElementsMatch(t, []string{"b", "c"}, related)

	related = c.Related("x", 10)
	assert.ElementsMatch(t, []string{"y", "z"}, related)
}

func TestClustersRelatedLimit(t *testing.T) {
	c := BuildItemClusters(twoGroupInteractions(), 4.0)
	assert.Len(t, c.Related("a", 1), 1)
	assert.Nil(t, c.Related("a", 0))
}

func TestClustersUnknownItem(t *testing.T) {
	c := BuildItemClusters(twoGroupInteractions(), 4.0)
	assert.Nil(t, c.Related("unseen", 5))
}

func TestClustersLowRatingsIgnored(t *testing.T) {
	// All ratings below the like threshold: no edges, no clusters.
	c := BuildItemClusters([]dataset.Interaction{
		{UserID: "1", ItemID: "a", Rating: 2},
		{UserID: "1", ItemID: "b", Rating: 1},
	}, 4.0)
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Related("a", 5))
}

func TestClustersDeterministic(t *testing.T) {
	a := BuildItemClusters(twoGroupInteractions(), 4.0)
	b := BuildItemClusters(twoGroupInteractions(), 4.0)
	require.Equal(t, a.Len(), b.Len())
	assert.Equal(t, a.Related("a", 10), b.Related("a", 10))
}
