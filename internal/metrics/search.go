package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playsearch",
			Name:      "search_requests_total",
			Help:      "Searches by resolved intent and response tier",
		},
		[]string{"intent", "tier", "transport"}, // transport: "json" / "sse"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "playsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"tier", "transport"},
	)

	SearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playsearch",
			Name:      "search_errors_total",
			Help:      "Failed searches by stage",
		},
		[]string{"stage"}, // "classify" / "retrieve" / "generate"
	)

	ClassificationFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "playsearch",
			Name:      "classification_fallback_total",
			Help:      "Classifier outputs that could not be parsed and fell back to the default intent",
		},
	)

	RetrievedChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "playsearch",
			Name:      "retrieved_chunks",
			Help:      "Chunks kept after the similarity threshold",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playsearch",
			Name:      "llm_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"provider", "model", "mode", "status"}, // mode: "complete" / "stream"
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "playsearch",
			Name:      "llm_request_duration_seconds",
			Help:      "Text generation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"provider", "model", "mode"},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "playsearch",
			Name:      "catalog_reloads_total",
			Help:      "Catalog snapshot reloads",
		},
		[]string{"status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchErrorsTotal)
	prometheus.MustRegister(ClassificationFallbackTotal)
	prometheus.MustRegister(RetrievedChunks)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(CatalogReloadsTotal)
	searchMetricsRegistered = true
}
