package dataset

import (
	"math/rand"
	"sort"
)

// Split holds the per-user holdout partition of a ratings set.
type Split struct {
	Train []Interaction
	Test  []Interaction
}

// SplitByUser holds out a testRatio fraction of each user's interactions,
// at least one per eligible user. When timestamps are present the held-out
// interactions are the most recent ones; otherwise selection is random but
// deterministic under seed. Users with fewer than 2 interactions stay
// entirely in train.
func SplitByUser(interactions []Interaction, testRatio float64, seed int64) Split {
	if testRatio <= 0 {
		return Split{Train: interactions}
	}
	if testRatio > 0.5 {
		testRatio = 0.5
	}

	users := ByUser(interactions)

	// Stable user order keeps the split deterministic regardless of map
	// iteration order.
	userIDs := make([]string, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	rng := rand.New(rand.NewSource(seed))

	var split Split
	for _, uid := range userIDs {
		ins := users[uid]
		if len(ins) < 2 {
			split.Train = append(split.Train, ins...)
			continue
		}

		n := int(float64(len(ins)) * testRatio)
		if n < 1 {
			n = 1
		}

		ordered := make([]Interaction, len(ins))
		copy(ordered, ins)

		if hasTimestamps(ordered) {
			sort.SliceStable(ordered, func(i, j int) bool {
				return ordered[i].Timestamp.Before(ordered[j].Timestamp)
			})
		} else {
			rng.Shuffle(len(ordered), func(i, j int) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			})
		}

		cut := len(ordered) - n
		split.Train = append(split.Train, ordered[:cut]...)
		split.Test = append(split.Test, ordered[cut:]...)
	}

	return split
}

func hasTimestamps(ins []Interaction) bool {
	for _, in := range ins {
		if in.Timestamp.IsZero() {
			return false
		}
	}
	return true
}

// RelevantItems returns each test user's relevant item set: held-out items
// rated at or above threshold. Users whose held-out items all fall below
// the threshold are absent from the result.
func RelevantItems(test []Interaction, threshold float64) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	for _, in := range test {
		if in.Rating < threshold {
			continue
		}
		if out[in.UserID] == nil {
			out[in.UserID] = make(map[string]bool)
		}
		out[in.UserID][in.ItemID] = true
	}
	return out
}
