// Command reclab runs a retrieval evaluation from the terminal: load the
// dataset, index the catalog, score every held-out user, print the report
// and write it to JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/reclab-io/reclab/internal/config"
	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/experiment"
	"github.com/reclab-io/reclab/internal/llm"
	"github.com/reclab-io/reclab/internal/scorer"
	"github.com/reclab-io/reclab/internal/store"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		cfgPath    = flag.String("config", "config/reclab.toml", "path to TOML config")
		scorerName = flag.String("scorer", "bm25", "scorer to evaluate: bm25 | dense | hybrid-weighted | hybrid-rrf")
		runName    = flag.String("name", "", "label for the run")
		alpha      = flag.Float64("alpha", 0.5, "lexical weight for hybrid-weighted fusion")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.ApplyEnv()

	if err := run(context.Background(), cfg, *scorerName, *runName, *alpha); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(ctx context.Context, cfg *config.Config, scorerName, runName string, alpha float64) error {
	loadOpts := dataset.LoadOptions{Separator: cfg.Dataset.Separator, HasHeader: cfg.Dataset.HasHeader}

	interactions, skipped, err := dataset.LoadRatings(cfg.Dataset.RatingsPath, loadOpts)
	if err != nil {
		return err
	}
	if skipped > 0 {
		log.Warn().Int("rows", skipped).Msg("skipped malformed rating rows")
	}
	catalog, _, err := dataset.LoadItems(cfg.Dataset.ItemsPath, loadOpts)
	if err != nil {
		return err
	}
	log.Info().Int("interactions", len(interactions)).Int("items", len(catalog)).Msg("dataset loaded")

	split := dataset.SplitByUser(interactions, cfg.Eval.TestRatio, cfg.Eval.Seed)
	log.Info().Int("train", len(split.Train)).Int("test", len(split.Test)).Msg("split prepared")

	sc, cleanup, err := buildScorer(ctx, cfg, scorerName, catalog, alpha)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := store.OpenRunStore(cfg.Store.RunDBPath)
	if err != nil {
		return err
	}
	defer runs.Close()

	runner := &experiment.Runner{
		Scorer:             sc,
		Catalog:            catalog,
		Cutoffs:            cfg.Eval.Cutoffs,
		RelevanceThreshold: cfg.Eval.RelevanceThreshold,
		UserTimeout:        time.Duration(cfg.Eval.UserTimeoutMs) * time.Millisecond,
		Name:               runName,
		DatasetName:        cfg.Dataset.RatingsPath,
		ReportDir:          cfg.Eval.ReportDir,
		Runs:               runs,
	}

	report, err := runner.Run(ctx, split)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s)\n", report.RunID, report.Scorer)
	for _, c := range report.Cutoffs {
		fmt.Printf("  @%-3d precision=%.4f recall=%.4f ndcg=%.4f hit_rate=%.4f (%d users)\n",
			c.K, c.Precision, c.Recall, c.NDCG, c.HitRate, c.Users)
	}
	fmt.Printf("  mrr=%.4f skipped=%d failed=%d elapsed=%dms\n",
		report.MRR, report.SkippedUsers, report.FailedUsers, report.ElapsedMs)
	return nil
}

// buildScorer constructs the requested scorer, building the dense side
// (embedder, cache, vector index) only when the scorer needs it.
func buildScorer(ctx context.Context, cfg *config.Config, name string, catalog map[string]dataset.Item, alpha float64) (scorer.Scorer, func(), error) {
	noop := func() {}

	bm25 := scorer.NewBM25Scorer(experiment.BuildBM25Index(catalog, cfg.Index.BM25K1, cfg.Index.BM25B))
	if name == "bm25" {
		return bm25, noop, nil
	}

	_, embedder, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, noop, err
	}
	if embedder == nil {
		return nil, noop, fmt.Errorf("provider %s has no embedding support; scorer %s unavailable", cfg.LLM.Provider, name)
	}

	embCache, err := store.OpenEmbeddingCache(cfg.Store.EmbeddingCacheDir)
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := embCache.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close embedding cache")
		}
	}

	vidx, err := experiment.BuildVectorIndex(ctx, catalog, embedder, embCache, cfg.LLM.EmbeddingModel, cfg.Index.EmbeddingDim)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	dense := scorer.NewDenseScorer(embedder, vidx)

	switch name {
	case "dense":
		return dense, cleanup, nil
	case "hybrid-weighted":
		h, err := scorer.NewHybridScorer(bm25, dense, alpha, scorer.FusionWeighted)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		return h, cleanup, nil
	case "hybrid-rrf":
		h, err := scorer.NewHybridScorer(bm25, dense, alpha, scorer.FusionRRF)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		return h, cleanup, nil
	default:
		cleanup()
		return nil, noop, fmt.Errorf("unknown scorer: %s", name)
	}
}
