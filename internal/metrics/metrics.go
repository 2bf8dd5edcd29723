package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notewise_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notewise_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// GenerationsTotal counts pipeline outcomes. kind is "ok" on success.
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notewise_generations_total",
			Help: "Total number of generation requests by operation and outcome kind.",
		},
		[]string{"operation", "kind"},
	)

	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notewise_quota_decisions_total",
			Help: "Quota gate decisions (allowed, reset, denied, not_found).",
		},
		[]string{"decision"},
	)

	QuotaRefundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notewise_quota_refunds_total",
			Help: "Total number of quota units returned after a failed generation.",
		},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notewise_provider_request_duration_seconds",
			Help:    "Latency of a single text generation provider call.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"status"},
	)

	ProviderRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notewise_provider_retries_total",
			Help: "Total number of provider call retries after a transient failure.",
		},
	)

	UsageEventsPersistedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notewise_usage_events_persisted_total",
			Help: "Usage events consumed from the stream by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		QuotaDecisionsTotal,
		QuotaRefundsTotal,
		ProviderRequestDuration,
		ProviderRetriesTotal,
		UsageEventsPersistedTotal,
	)
}
