package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// VectorIndex is a flat (brute force) cosine-similarity index. Exhaustive
// search keeps recall at 100%, which is the right trade for the corpus
// sizes evaluation runs deal with.
type VectorIndex struct {
	dim int

	mu      sync.RWMutex
	ids     []string
	vectors [][]float64
	norms   []float64
}

func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{dim: dim}
}

// Dim returns the configured embedding dimension.
func (v *VectorIndex) Dim() int { return v.dim }

// Len returns the number of indexed vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.ids)
}

// Add indexes vec under id. The dimension must match the index.
func (v *VectorIndex) Add(id string, vec []float32) error {
	if len(vec) != v.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), v.dim)
	}

	f64 := make([]float64, len(vec))
	for i, x := range vec {
		f64[i] = float64(x)
	}
	norm := floats.Norm(f64, 2)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids = append(v.ids, id)
	v.vectors = append(v.vectors, f64)
	v.norms = append(v.norms, norm)
	return nil
}

// Search returns the top k ids by cosine similarity to query, descending,
// ties broken by id. Zero-norm vectors score 0 rather than NaN.
func (v *VectorIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != v.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), v.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	q := make([]float64, len(query))
	for i, x := range query {
		q[i] = float64(x)
	}
	qNorm := floats.Norm(q, 2)

	v.mu.RLock()
	defer v.mu.RUnlock()

	hits := make([]Hit, 0, len(v.ids))
	for i, vec := range v.vectors {
		score := 0.0
		if qNorm > 0 && v.norms[i] > 0 {
			score = floats.Dot(q, vec) / (qNorm * v.norms[i])
		}
		if math.IsNaN(score) {
			score = 0
		}
		hits = append(hits, Hit{ID: v.ids[i], Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
