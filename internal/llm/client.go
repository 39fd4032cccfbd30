package llm

import (
	"context"
)

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a dense vector. EmbedBatch exists because
// corpus indexing embeds thousands of texts and providers take batches.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker reorders candidate documents by relevance to a query,
// returning indices into the input slice.
type Reranker interface {
	Rank(ctx context.Context, query string, documents []string) ([]int, error)
}
