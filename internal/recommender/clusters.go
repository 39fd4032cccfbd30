package recommender

import (
	"sort"

	"github.com/reclab-io/reclab/internal/dataset"
)

// ItemClusters groups catalog items by label propagation over the
// co-rating graph: two items are connected when the same user rated both
// well, weighted by how many users did. Clusters back the "related items"
// lookup without needing embeddings or an external model.
type ItemClusters struct {
	MaxIterations int

	clusterOf map[string]string
	members   map[string][]string
}

// BuildItemClusters runs label propagation over interactions. likeThreshold
// bounds which ratings count as co-liking; singleton clusters are dropped.
func BuildItemClusters(interactions []dataset.Interaction, likeThreshold float64) *ItemClusters {
	c := &ItemClusters{
		MaxIterations: 20,
		clusterOf:     make(map[string]string),
		members:       make(map[string][]string),
	}

	// Co-occurrence edges, weighted by user count.
	likedBy := make(map[string][]string)
	for _, in := range interactions {
		if in.Rating >= likeThreshold {
			likedBy[in.UserID] = append(likedBy[in.UserID], in.ItemID)
		}
	}

	adj := make(map[string]map[string]int)
	touch := func(item string) {
		if adj[item] == nil {
			adj[item] = make(map[string]int)
		}
	}
	for _, items := range likedBy {
		for i, a := range items {
			for _, b := range items[i+1:] {
				if a == b {
					continue
				}
				touch(a)
				touch(b)
				adj[a][b]++
				adj[b][a]++
			}
		}
	}
	if len(adj) == 0 {
		return c
	}

	items := make([]string, 0, len(adj))
	for item := range adj {
		items = append(items, item)
	}
	sort.Strings(items)

	// Every item starts in its own cluster; labels then propagate to the
	// weighted majority of each item's neighbors until stable.
	labels := make(map[string]string, len(items))
	for _, item := range items {
		labels[item] = item
	}

	for iter := 0; iter < c.MaxIterations; iter++ {
		changed := 0
		for _, item := range items {
			neighbors := adj[item]
			if len(neighbors) == 0 {
				continue
			}

			counts := make(map[string]int)
			max := 0
			for n, w := range neighbors {
				counts[labels[n]] += w
				if counts[labels[n]] > max {
					max = counts[labels[n]]
				}
			}

			var best []string
			for label, count := range counts {
				if count == max {
					best = append(best, label)
				}
			}
			// Lexicographically largest label breaks ties deterministically.
			sort.Strings(best)
			winner := best[len(best)-1]

			if labels[item] != winner {
				labels[item] = winner
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	clusters := make(map[string][]string)
	for item, label := range labels {
		clusters[label] = append(clusters[label], item)
	}
	for label, members := range clusters {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		c.members[label] = members
		for _, item := range members {
			c.clusterOf[item] = label
		}
	}

	return c
}

// Related returns up to k items sharing the given item's cluster, id-sorted,
// the item itself excluded. Unknown or singleton items get nothing.
func (c *ItemClusters) Related(itemID string, k int) []string {
	label, ok := c.clusterOf[itemID]
	if !ok || k <= 0 {
		return nil
	}

	out := make([]string, 0, k)
	for _, member := range c.members[label] {
		if member == itemID {
			continue
		}
		out = append(out, member)
		if len(out) == k {
			break
		}
	}
	return out
}

// Len reports how many non-singleton clusters exist.
func (c *ItemClusters) Len() int {
	return len(c.members)
}
