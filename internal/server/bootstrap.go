package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/reclab-io/reclab/internal/config"
	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/experiment"
	"github.com/reclab-io/reclab/internal/llm"
	"github.com/reclab-io/reclab/internal/recommender"
	"github.com/reclab-io/reclab/internal/scorer"
	"github.com/reclab-io/reclab/internal/store"
)

// App is the fully wired service plus the resources it must close.
type App struct {
	Server *Server

	embCache *store.EmbeddingCache
	runs     *store.RunStore
}

func (a *App) Close() {
	if a.embCache != nil {
		if err := a.embCache.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close embedding cache")
		}
	}
	if a.runs != nil {
		if err := a.runs.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close run store")
		}
	}
}

// cachedEmbedder routes single-text embeddings through the persistent
// cache. Batch calls bypass it; the indexer manages the cache itself.
type cachedEmbedder struct {
	inner llm.Embedder
	cache *store.EmbeddingCache
	model string
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.cache.GetOrCompute(ctx, c.model, text, c.inner.Embed)
}

func (c *cachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

// Build loads the dataset, trains the baselines, constructs every scorer
// the configuration allows, and wires the HTTP server. A missing embedder
// downgrades the service to lexical-only instead of failing startup.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Dataset.RatingsPath == "" || cfg.Dataset.ItemsPath == "" {
		return nil, fmt.Errorf("dataset.ratings_path and dataset.items_path are required")
	}

	loadOpts := dataset.LoadOptions{Separator: cfg.Dataset.Separator, HasHeader: cfg.Dataset.HasHeader}

	interactions, skipped, err := dataset.LoadRatings(cfg.Dataset.RatingsPath, loadOpts)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn().Int("rows", skipped).Msg("skipped malformed rating rows")
	}

	catalog, skipped, err := dataset.LoadItems(cfg.Dataset.ItemsPath, loadOpts)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn().Int("rows", skipped).Msg("skipped malformed item rows")
	}
	log.Info().Int("interactions", len(interactions)).Int("items", len(catalog)).Msg("dataset loaded")

	split := dataset.SplitByUser(interactions, cfg.Eval.TestRatio, cfg.Eval.Seed)
	knn := recommender.TrainItemKNN(split.Train, 50)
	clusters := recommender.BuildItemClusters(split.Train, cfg.Eval.RelevanceThreshold)

	app := &App{}

	runs, err := store.OpenRunStore(cfg.Store.RunDBPath)
	if err != nil {
		return nil, err
	}
	app.runs = runs

	client, embedder, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	scorers := map[string]scorer.Scorer{}
	bm25 := scorer.NewBM25Scorer(experiment.BuildBM25Index(catalog, cfg.Index.BM25K1, cfg.Index.BM25B))
	scorers[bm25.Name()] = bm25

	var llmRec *recommender.LLMRecommender
	if client != nil {
		llmRec = recommender.NewLLMRecommender(client, catalog, cfg.LLM.Model, cfg.LLM.PromptBudget)
	}

	if embedder != nil {
		embCache, err := store.OpenEmbeddingCache(cfg.Store.EmbeddingCacheDir)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.embCache = embCache

		vidx, err := experiment.BuildVectorIndex(ctx, catalog, embedder, embCache, cfg.LLM.EmbeddingModel, cfg.Index.EmbeddingDim)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to build vector index: %w", err)
		}

		queryEmbedder := &cachedEmbedder{inner: embedder, cache: embCache, model: cfg.LLM.EmbeddingModel}
		dense := scorer.NewDenseScorer(queryEmbedder, vidx)
		scorers[dense.Name()] = dense

		hybrid, err := scorer.NewHybridScorer(bm25, dense, 0.5, scorer.FusionWeighted)
		if err != nil {
			app.Close()
			return nil, err
		}
		scorers[hybrid.Name()] = hybrid

		rrf, err := scorer.NewHybridScorer(bm25, dense, 0.5, scorer.FusionRRF)
		if err != nil {
			app.Close()
			return nil, err
		}
		scorers[rrf.Name()] = rrf
	} else {
		log.Warn().Str("provider", cfg.LLM.Provider).Msg("provider has no embedding support; dense and hybrid scorers disabled")
	}

	srv := New(scorers, catalog, knn, runs, time.Duration(cfg.Server.CacheTTLSecs)*time.Second)
	srv.Clusters = clusters
	srv.LLMRec = llmRec
	srv.Profile = dataset.ByUser(split.Train)
	srv.Launch = func(c *gin.Context, scorerName, runName string) (string, error) {
		runner := &experiment.Runner{
			Scorer:             scorers[scorerName],
			Catalog:            catalog,
			Cutoffs:            cfg.Eval.Cutoffs,
			RelevanceThreshold: cfg.Eval.RelevanceThreshold,
			UserTimeout:        time.Duration(cfg.Eval.UserTimeoutMs) * time.Millisecond,
			Name:               runName,
			DatasetName:        cfg.Dataset.RatingsPath,
			ReportDir:          cfg.Eval.ReportDir,
			Runs:               runs,
		}
		report, err := runner.Run(c.Request.Context(), split)
		if err != nil {
			return "", err
		}
		return report.RunID, nil
	}

	app.Server = srv
	return app, nil
}
