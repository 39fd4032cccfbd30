package experiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/index"
	"github.com/reclab-io/reclab/internal/llm"
	"github.com/reclab-io/reclab/internal/store"
)

// BuildBM25Index indexes every catalog item's text. Iteration is id-sorted
// so repeated builds produce identical indexes. Non-positive k1 or b keep
// the index defaults.
func BuildBM25Index(items map[string]dataset.Item, k1, b float64) *index.BM25Index {
	idx := index.NewBM25Index()
	if k1 > 0 {
		idx.K1 = k1
	}
	if b > 0 {
		idx.B = b
	}
	for _, id := range sortedIDs(items) {
		idx.Add(id, items[id].Text())
	}
	return idx
}

const embedBatchSize = 64

// BuildVectorIndex embeds the catalog and fills a flat cosine index. The
// embedding cache short-circuits texts seen on earlier runs; only misses
// go to the API, in batches. Items whose embedding cannot be produced are
// skipped with a warning rather than failing the whole build.
func BuildVectorIndex(ctx context.Context, items map[string]dataset.Item, embedder llm.Embedder, cache *store.EmbeddingCache, model string, dim int) (*index.VectorIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("no embedder configured; dense indexing unavailable")
	}

	idx := index.NewVectorIndex(dim)
	ids := sortedIDs(items)

	pending := make([]string, 0, embedBatchSize)
	pendingTexts := make([]string, 0, embedBatchSize)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		vecs, err := embedder.EmbedBatch(ctx, pendingTexts)
		if err != nil {
			return fmt.Errorf("failed to embed batch of %d items: %w", len(pending), err)
		}
		for i, id := range pending {
			if cache != nil {
				cache.Put(model, pendingTexts[i], vecs[i])
			}
			if err := idx.Add(id, vecs[i]); err != nil {
				log.Warn().Str("item", id).Err(err).Msg("skipping item with bad embedding")
			}
		}
		pending = pending[:0]
		pendingTexts = pendingTexts[:0]
		return nil
	}

	for _, id := range ids {
		text := items[id].Text()
		if text == "" {
			continue
		}

		if cache != nil {
			if vec := cache.Get(model, text); vec != nil {
				if err := idx.Add(id, vec); err != nil {
					log.Warn().Str("item", id).Err(err).Msg("skipping item with bad cached embedding")
				}
				continue
			}
		}

		pending = append(pending, id)
		pendingTexts = append(pendingTexts, text)
		if len(pending) == embedBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	log.Info().Int("items", idx.Len()).Int("dim", dim).Msg("vector index built")
	return idx, nil
}

func sortedIDs(items map[string]dataset.Item) []string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
