package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/reclab-io/reclab/internal/metrics"
)

// EmbeddingCache persists embeddings across runs so re-indexing the same
// corpus does not re-bill the embedding API. Keys bind the model name to
// a hash of the text; vectors are stored as little-endian float32 bytes.
type EmbeddingCache struct {
	db *badger.DB
}

func OpenEmbeddingCache(dir string) (*EmbeddingCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache at %s: %w", dir, err)
	}
	return &EmbeddingCache{db: db}, nil
}

func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) []byte {
	h := sha256.Sum256([]byte(text))
	return append([]byte(model+"/"), h[:]...)
}

// Get returns the cached vector, or nil when absent.
func (c *EmbeddingCache) Get(model, text string) []float32 {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(model, text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		return nil
	}
	return vec
}

// Put stores a vector. Write failures are logged, not returned: the cache
// is an optimization and must never fail a run.
func (c *EmbeddingCache) Put(model, text string, vec []float32) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(model, text), encodeVector(vec))
	})
	if err != nil {
		log.Warn().Err(err).Msg("embedding cache write failed")
	}
}

// GetOrCompute serves from cache, calling compute on miss and caching the
// result.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, model, text string, compute func(context.Context, string) ([]float32, error)) ([]float32, error) {
	if vec := c.Get(model, text); vec != nil {
		metrics.EmbeddingCacheHits.Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheMisses.Inc()

	vec, err := compute(ctx, text)
	if err != nil {
		return nil, err
	}
	c.Put(model, text, vec)
	return vec, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
