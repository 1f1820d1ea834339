package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conjugo_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"model", "status", "operation"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conjugo_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"model", "operation"})

	LLMPromptTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_llm_prompt_tokens_total",
		Help: "Prompt tokens consumed",
	}, []string{"model", "operation"})

	LLMCompletionTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_llm_completion_tokens_total",
		Help: "Completion tokens consumed",
	}, []string{"model", "operation"})

	LLMReasoningTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_llm_reasoning_tokens_total",
		Help: "Reasoning tokens consumed",
	}, []string{"model", "operation"})

	WorkerMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_worker_messages_total",
		Help: "Generation messages processed by workers",
	}, []string{"outcome"}) // generated, failed, duplicate

	WorkerMessageDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "conjugo_worker_message_duration_seconds",
		Help:    "Time to process one generation message",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	BrokerPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_broker_publish_total",
		Help: "Generation messages published to the broker",
	}, []string{"status"})

	ProblemsServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conjugo_problems_served_total",
		Help: "Problems returned by the random selector",
	})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conjugo_cache_lookups_total",
		Help: "Cache lookups by cache name and result",
	}, []string{"cache", "result"}) // hit, miss

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conjugo_rate_limited_total",
		Help: "Requests rejected by the per-key rate limiter",
	})

	RequestsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conjugo_generation_requests_expired_total",
		Help: "Generation requests expired by the sweeper",
	})
)
