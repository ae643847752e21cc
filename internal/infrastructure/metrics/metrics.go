package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shop"

// Metrics — prometheus-метрики поиска, backfill и HTTP.
type Metrics struct {
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	SearchesTotal       *prometheus.CounterVec
	SearchDuration      *prometheus.HistogramVec
	SearchCandidates    prometheus.Histogram
	BackfillItemsTotal  *prometheus.CounterVec
}

// New регистрирует метрики в reg. В приложении это prometheus.DefaultRegisterer, в тестах — свой реестр.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"path", "method", "status"}),

		HttpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),

		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_searches_total",
			Help:      "Search-by-image requests by outcome",
		}, []string{"outcome"}),

		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_search_duration_seconds",
			Help:      "Time taken to extract, rank and join a search-by-image request",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),

		SearchCandidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_search_candidates",
			Help:      "Number of fingerprinted products scanned per search",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),

		BackfillItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fingerprint_backfill_items_total",
			Help:      "Products processed by fingerprint backfill by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveSearch(outcome string, candidates int, elapsed time.Duration) {
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if candidates > 0 {
		m.SearchCandidates.Observe(float64(candidates))
	}
}

func (m *Metrics) ObserveBackfillItem(outcome string) {
	m.BackfillItemsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(path, method string, status int, elapsed time.Duration) {
	m.HttpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.HttpRequestDuration.WithLabelValues(path, method).Observe(elapsed.Seconds())
}
