package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permitsearch",
			Name:      "searches_total",
			Help:      "Total number of searches by outcome",
		},
		[]string{"status"},
	)

	SearchStaleHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "permitsearch",
			Name:      "search_stale_hits_total",
			Help:      "Index hits dropped because the corpus record was missing",
		},
	)

	QueryLogDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "permitsearch",
			Name:      "query_log_dropped_total",
			Help:      "Query log entries dropped because the recorder queue was full",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchStaleHitsTotal)
	prometheus.MustRegister(QueryLogDroppedTotal)
	searchMetricsRegistered = true
}
