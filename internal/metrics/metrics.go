package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reclab_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})

	RequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reclab_request_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	LLMCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reclab_llm_calls_total",
		Help: "Hosted model calls by provider, kind (generate/embed) and status.",
	}, []string{"provider", "kind", "status"})

	EmbeddingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reclab_embedding_cache_hits_total",
		Help: "Embedding cache hits.",
	})

	EmbeddingCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reclab_embedding_cache_misses_total",
		Help: "Embedding cache misses.",
	})

	EvaluatedUsers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reclab_evaluated_users_total",
		Help: "Users processed by evaluation runs, by outcome.",
	}, []string{"outcome"})
)
