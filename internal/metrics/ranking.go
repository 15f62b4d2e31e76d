package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ranking and search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by ranking mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	RankingQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_query_duration_seconds",
			Help:      "Ranking query duration in seconds, including connection acquisition",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		},
		[]string{"mode"},
	)

	SearchResultsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_returned",
			Help:      "Results returned per search",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
		},
		[]string{"mode"},
	)
)

var rankingMetricsRegistered bool

// RegisterRankingMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterRankingMetrics() {
	if rankingMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal, RankingQueryDuration, SearchResultsReturned)
	rankingMetricsRegistered = true
}
