package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryClient wraps a Client with exponential backoff. Context
// cancellation is never retried.
type retryClient struct {
	inner      Client
	maxRetries uint64
}

func WithRetry(c Client, maxRetries int) Client {
	return &retryClient{inner: c, maxRetries: uint64(maxRetries)}
}

func (r *retryClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	op := func() error {
		resp, err := r.inner.Generate(ctx, prompt)
		if err != nil {
			return classify(ctx, err)
		}
		out = resp
		return nil
	}
	if err := backoff.Retry(op, policy(ctx, r.maxRetries)); err != nil {
		return "", err
	}
	return out, nil
}

type retryEmbedder struct {
	inner      Embedder
	maxRetries uint64
}

func WithEmbedRetry(e Embedder, maxRetries int) Embedder {
	return &retryEmbedder{inner: e, maxRetries: uint64(maxRetries)}
}

func (r *retryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	op := func() error {
		vec, err := r.inner.Embed(ctx, text)
		if err != nil {
			return classify(ctx, err)
		}
		out = vec
		return nil
	}
	if err := backoff.Retry(op, policy(ctx, r.maxRetries)); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *retryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	op := func() error {
		vecs, err := r.inner.EmbedBatch(ctx, texts)
		if err != nil {
			return classify(ctx, err)
		}
		out = vecs
		return nil
	}
	if err := backoff.Retry(op, policy(ctx, r.maxRetries)); err != nil {
		return nil, err
	}
	return out, nil
}

func policy(ctx context.Context, maxRetries uint64) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	return err
}
