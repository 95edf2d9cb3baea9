package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search execution time in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"query_type", "status"},
	)

	CatalogRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "catalog_retries_total",
			Help:      "Catalog candidate fetches retried after a failure",
		},
	)

	CatalogFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "catalog_failures_total",
			Help:      "Catalog candidate fetches that failed after retry",
		},
		[]string{"reason"}, // "timeout" / "error"
	)

	FacetRefetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "facet_refetches_total",
			Help:      "Extra candidate fetches issued for filtered facet dimensions",
		},
		[]string{"dimension"},
	)

	SuggestRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "suggest_requests_total",
			Help:      "Suggestion requests by outcome",
		},
		[]string{"status"},
	)

	VocabularyEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "vocabulary_entries",
			Help:      "Number of entries in the suggestion vocabulary",
		},
	)

	AnalyticsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "analytics_events_total",
			Help:      "Analytics events by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: search/click; status: recorded/dropped/failed
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions_active",
			Help:      "Open live search sessions",
		},
	)

	SessionStaleResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "session_stale_responses_total",
			Help:      "Search responses discarded because a newer request superseded them",
		},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		SearchDuration,
		CatalogRetriesTotal,
		CatalogFailuresTotal,
		FacetRefetchesTotal,
		SuggestRequestsTotal,
		VocabularyEntries,
		AnalyticsEventsTotal,
		SessionsActive,
		SessionStaleResponsesTotal,
		RateLimitedTotal,
	)
	searchMetricsRegistered = true
}
