package recommender

import (
	"math"
	"sort"

	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/scorer"
)

type neighbor struct {
	item string
	sim  float64
}

// ItemKNN is an item-based collaborative filter: item-item cosine over
// mean-centered user ratings, prediction by similarity-weighted rating sum.
// Training is done once over the train split; Recommend is read-only and
// safe for concurrent use.
type ItemKNN struct {
	topN        int
	neighbors   map[string][]neighbor
	userRatings map[string]map[string]float64
	userMeans   map[string]float64
}

// TrainItemKNN builds the similarity model. topN bounds the neighbor list
// kept per item; 0 keeps everything.
func TrainItemKNN(train []dataset.Interaction, topN int) *ItemKNN {
	m := &ItemKNN{
		topN:        topN,
		neighbors:   make(map[string][]neighbor),
		userRatings: make(map[string]map[string]float64),
		userMeans:   make(map[string]float64),
	}

	for _, in := range train {
		if m.userRatings[in.UserID] == nil {
			m.userRatings[in.UserID] = make(map[string]float64)
		}
		m.userRatings[in.UserID][in.ItemID] = in.Rating
	}

	for uid, ratings := range m.userRatings {
		sum := 0.0
		for _, r := range ratings {
			sum += r
		}
		m.userMeans[uid] = sum / float64(len(ratings))
	}

	// Item vectors over users, mean-centered so a generous rater and a
	// harsh rater contribute comparably.
	itemVecs := make(map[string]map[string]float64)
	for uid, ratings := range m.userRatings {
		mean := m.userMeans[uid]
		for item, r := range ratings {
			if itemVecs[item] == nil {
				itemVecs[item] = make(map[string]float64)
			}
			itemVecs[item][uid] = r - mean
		}
	}

	items := make([]string, 0, len(itemVecs))
	for item := range itemVecs {
		items = append(items, item)
	}
	sort.Strings(items)

	norms := make(map[string]float64, len(items))
	for item, vec := range itemVecs {
		s := 0.0
		for _, v := range vec {
			s += v * v
		}
		norms[item] = math.Sqrt(s)
	}

	for i, a := range items {
		for _, b := range items[i+1:] {
			sim := cosineSparse(itemVecs[a], itemVecs[b], norms[a], norms[b])
			if sim <= 0 {
				continue
			}
			m.neighbors[a] = append(m.neighbors[a], neighbor{item: b, sim: sim})
			m.neighbors[b] = append(m.neighbors[b], neighbor{item: a, sim: sim})
		}
	}

	for item := range m.neighbors {
		ns := m.neighbors[item]
		sort.Slice(ns, func(i, j int) bool {
			if ns[i].sim != ns[j].sim {
				return ns[i].sim > ns[j].sim
			}
			return ns[i].item < ns[j].item
		})
		if topN > 0 && len(ns) > topN {
			ns = ns[:topN]
		}
		m.neighbors[item] = ns
	}

	return m
}

func cosineSparse(a, b map[string]float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	// Iterate the smaller vector.
	if len(b) < len(a) {
		a, b = b, a
	}
	dot := 0.0
	for uid, va := range a {
		if vb, ok := b[uid]; ok {
			dot += va * vb
		}
	}
	return dot / (normA * normB)
}

// Recommend scores unseen items for a user by propagating their centered
// ratings through item neighborhoods. Unknown users get nothing.
func (m *ItemKNN) Recommend(userID string, k int) []scorer.Result {
	ratings, ok := m.userRatings[userID]
	if !ok || k <= 0 {
		return nil
	}
	mean := m.userMeans[userID]

	scores := make(map[string]float64)
	weights := make(map[string]float64)
	for item, rating := range ratings {
		for _, n := range m.neighbors[item] {
			if _, seen := ratings[n.item]; seen {
				continue
			}
			scores[n.item] += n.sim * (rating - mean)
			weights[n.item] += n.sim
		}
	}

	results := make([]scorer.Result, 0, len(scores))
	for item, s := range scores {
		pred := mean
		if w := weights[item]; w > 0 {
			pred = mean + s/w
		}
		results = append(results, scorer.Result{ID: item, Score: pred})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Predict estimates the user's rating for a single item, falling back to
// the user mean when no rated neighbor exists. The bool reports whether
// the user is known at all.
func (m *ItemKNN) Predict(userID, itemID string) (float64, bool) {
	ratings, ok := m.userRatings[userID]
	if !ok {
		return 0, false
	}
	mean := m.userMeans[userID]

	num, den := 0.0, 0.0
	for _, n := range m.neighbors[itemID] {
		if r, rated := ratings[n.item]; rated {
			num += n.sim * (r - mean)
			den += n.sim
		}
	}
	if den == 0 {
		return mean, true
	}
	return mean + num/den, true
}
