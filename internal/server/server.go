package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/reclab-io/reclab/internal/dataset"
	"github.com/reclab-io/reclab/internal/metrics"
	"github.com/reclab-io/reclab/internal/recommender"
	"github.com/reclab-io/reclab/internal/scorer"
	"github.com/reclab-io/reclab/internal/store"
)

// Server exposes the experiment toolkit over HTTP: ad hoc search against
// the corpus scorers, collaborative-filtering recommendations, and
// launching/fetching evaluation runs.
type Server struct {
	Scorers  map[string]scorer.Scorer
	Catalog  map[string]dataset.Item
	KNN      *recommender.ItemKNN
	Clusters *recommender.ItemClusters
	LLMRec   *recommender.LLMRecommender
	Profile  map[string][]dataset.Interaction
	Runs     *store.RunStore
	Launch   LaunchFunc

	recCache *gocache.Cache
}

// LaunchFunc executes an evaluation run for a named scorer; the server
// stays ignorant of runner wiring.
type LaunchFunc func(c *gin.Context, scorerName string, runName string) (runID string, err error)

func New(scorers map[string]scorer.Scorer, catalog map[string]dataset.Item, knn *recommender.ItemKNN, runs *store.RunStore, cacheTTL time.Duration) *Server {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Server{
		Scorers:  scorers,
		Catalog:  catalog,
		KNN:      knn,
		Runs:     runs,
		recCache: gocache.New(cacheTTL, 2*cacheTTL),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), instrument())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/search", s.Search)
	r.POST("/recommend", s.Recommend)
	r.GET("/items/:id/related", s.RelatedItems)
	r.POST("/experiments", s.LaunchExperiment)
	r.GET("/experiments", s.ListExperiments)
	r.GET("/experiments/:id", s.GetExperiment)

	return r
}

// instrument records request counts and latencies per route.
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

type SearchRequest struct {
	Query  string `json:"query" binding:"required"`
	Scorer string `json:"scorer"`
	K      int    `json:"k"`
}

type rankedItem struct {
	ID    string  `json:"id"`
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score"`
}

func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.K <= 0 {
		req.K = 10
	}
	if req.Scorer == "" {
		req.Scorer = "bm25"
	}

	sc, ok := s.Scorers[req.Scorer]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown scorer: %s", req.Scorer)})
		return
	}

	results, err := sc.Score(c.Request.Context(), req.Query, req.K)
	if err != nil {
		log.Error().Err(err).Str("scorer", req.Scorer).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": s.withTitles(results)})
}

type RecommendRequest struct {
	UserID string `json:"user_id" binding:"required"`
	K      int    `json:"k"`
}

func (s *Server) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.K <= 0 {
		req.K = 10
	}

	cacheKey := fmt.Sprintf("%s/%d", req.UserID, req.K)
	if cached, ok := s.recCache.Get(cacheKey); ok {
		c.JSON(http.StatusOK, gin.H{"recommendations": cached, "cached": true})
		return
	}

	results := s.KNN.Recommend(req.UserID, req.K)
	if len(results) == 0 && s.LLMRec != nil {
		// Cold or sparse user: let the language model try from whatever
		// profile exists.
		var err error
		results, err = s.LLMRec.Recommend(c.Request.Context(), s.Profile[req.UserID], req.K)
		if err != nil {
			log.Warn().Err(err).Str("user", req.UserID).Msg("llm fallback failed")
		}
	}
	if len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recommendations for user"})
		return
	}

	items := s.withTitles(results)
	s.recCache.Set(cacheKey, items, gocache.DefaultExpiration)
	c.JSON(http.StatusOK, gin.H{"recommendations": items, "cached": false})
}

type ExperimentRequest struct {
	Name   string `json:"name"`
	Scorer string `json:"scorer" binding:"required"`
}

func (s *Server) LaunchExperiment(c *gin.Context) {
	var req ExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if s.Launch == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "experiment runner not configured"})
		return
	}
	if _, ok := s.Scorers[req.Scorer]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown scorer: %s", req.Scorer)})
		return
	}

	runID, err := s.Launch(c, req.Scorer, req.Name)
	if err != nil {
		log.Error().Err(err).Str("scorer", req.Scorer).Msg("experiment failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "experiment failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"run_id": runID})
}

// RelatedItems serves cluster neighbors of an item: other items the same
// taste group co-liked.
func (s *Server) RelatedItems(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.Catalog[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown item"})
		return
	}
	if s.Clusters == nil {
		c.JSON(http.StatusOK, gin.H{"related": []rankedItem{}})
		return
	}

	k := 10
	if v := c.Query("k"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			k = parsed
		}
	}

	related := s.Clusters.Related(id, k)
	results := make([]scorer.Result, len(related))
	for i, rid := range related {
		results[i] = scorer.Result{ID: rid}
	}
	c.JSON(http.StatusOK, gin.H{"related": s.withTitles(results)})
}

func (s *Server) GetExperiment(c *gin.Context) {
	report, err := s.Runs.Get(c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) ListExperiments(c *gin.Context) {
	runs, err := s.Runs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) withTitles(results []scorer.Result) []rankedItem {
	out := make([]rankedItem, len(results))
	for i, r := range results {
		out[i] = rankedItem{ID: r.ID, Score: r.Score}
		if it, ok := s.Catalog[r.ID]; ok {
			out[i].Title = it.Title
		}
	}
	return out
}
