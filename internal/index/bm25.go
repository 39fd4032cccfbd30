package index

import (
	"math"
	"sort"
	"sync"
)

// Hit is a scored document id.
type Hit struct {
	ID    string
	Score float64
}

type posting struct {
	doc  int // position in docIDs
	freq int
}

// BM25Index is an in-memory inverted index scored with Okapi BM25.
// Add calls build the index; Search is safe for concurrent use once
// the corpus is loaded.
type BM25Index struct {
	K1 float64
	B  float64

	mu       sync.RWMutex
	postings map[string][]posting
	docIDs   []string
	docLens  []int
	totalLen int
}

func NewBM25Index() *BM25Index {
	return &BM25Index{
		K1:       1.2,
		B:        0.75,
		postings: make(map[string][]posting),
	}
}

// Add tokenizes text and indexes it under id. Empty documents are indexed
// with length zero so the id still resolves.
func (idx *BM25Index) Add(id, text string) {
	tokens := Tokenize(text)

	freqs := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	doc := len(idx.docIDs)
	idx.docIDs = append(idx.docIDs, id)
	idx.docLens = append(idx.docLens, len(tokens))
	idx.totalLen += len(tokens)

	for tok, freq := range freqs {
		idx.postings[tok] = append(idx.postings[tok], posting{doc: doc, freq: freq})
	}
}

// Len returns the number of indexed documents.
func (idx *BM25Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docIDs)
}

// Search scores the query against the corpus and returns the top k hits in
// descending score order, ties broken by id for determinism. Documents with
// no overlapping terms are not returned.
func (idx *BM25Index) Search(query string, k int) []Hit {
	tokens := Tokenize(query)
	if len(tokens) == 0 || k <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.docIDs)
	if n == 0 {
		return nil
	}
	avgLen := float64(idx.totalLen) / float64(n)
	if avgLen == 0 {
		avgLen = 1
	}

	scores := make(map[int]float64)
	for _, tok := range tokens {
		plist, ok := idx.postings[tok]
		if !ok {
			continue
		}

		// Floor IDF at 0: terms in more than half the corpus carry no signal.
		idf := math.Log((float64(n) - float64(len(plist)) + 0.5) / (float64(len(plist)) + 0.5))
		if idf < 0 {
			idf = 0
		}

		for _, p := range plist {
			tf := float64(p.freq)
			norm := idx.K1 * (1 - idx.B + idx.B*float64(idx.docLens[p.doc])/avgLen)
			scores[p.doc] += idf * tf * (idx.K1 + 1) / (tf + norm)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for doc, score := range scores {
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{ID: idx.docIDs[doc], Score: score})
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
	return hits
}
