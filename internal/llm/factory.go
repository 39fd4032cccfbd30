package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/reclab-io/reclab/internal/config"
)

// NewClient builds the generation and embedding clients for the configured
// provider. A nil Embedder means the provider has no embedding support and
// dense scoring is unavailable.
func NewClient(ctx context.Context, cfg config.LLMConfig) (Client, Embedder, error) {
	var (
		client   Client
		embedder Embedder
	)

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		c := NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.BaseURL)
		client, embedder = c, c

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		client, embedder = c, c

	case "claude":
		client = NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL)

	case "ollama":
		// Ollama speaks the OpenAI API under /v1.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by the server, required by the client
		}
		c := NewOpenAIClient(apiKey, cfg.Model, cfg.EmbeddingModel, baseURL)
		client, embedder = c, c

	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}

	if cfg.MaxRetries > 0 {
		client = WithRetry(client, cfg.MaxRetries)
		if embedder != nil {
			embedder = WithEmbedRetry(embedder, cfg.MaxRetries)
		}
	}

	provider := strings.ToLower(cfg.Provider)
	client = &instrumentedClient{inner: client, provider: provider}
	if embedder != nil {
		embedder = &instrumentedEmbedder{inner: embedder, provider: provider}
	}

	return client, embedder, nil
}
