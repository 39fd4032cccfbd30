package llm

import (
	"context"

	"github.com/reclab-io/reclab/internal/metrics"
)

// instrumentedClient counts every hosted-model call by provider and
// outcome. It wraps outside the retry layer so one logical call counts
// once regardless of how many attempts it took.
type instrumentedClient struct {
	inner    Client
	provider string
}

func (c *instrumentedClient) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.inner.Generate(ctx, prompt)
	metrics.LLMCallsTotal.WithLabelValues(c.provider, "generate", outcome(err)).Inc()
	return out, err
}

type instrumentedEmbedder struct {
	inner    Embedder
	provider string
}

func (e *instrumentedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.inner.Embed(ctx, text)
	metrics.LLMCallsTotal.WithLabelValues(e.provider, "embed", outcome(err)).Inc()
	return out, err
}

func (e *instrumentedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.inner.EmbedBatch(ctx, texts)
	metrics.LLMCallsTotal.WithLabelValues(e.provider, "embed_batch", outcome(err)).Inc()
	return out, err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
