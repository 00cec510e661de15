// Package metrics exposes Prometheus instrumentation for source
// fetches and query handling.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus metrics for the audit service.
type Registry struct {
	FetchesTotal       *prometheus.CounterVec
	FetchFailuresTotal *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	FlightsFetched     *prometheus.CounterVec
	QueriesTotal       prometheus.Counter
	CacheHitsTotal     prometheus.Counter
}

// NewRegistry initializes and registers all metrics on the default
// registerer.
func NewRegistry() *Registry {
	return &Registry{
		FetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightaudit_source_fetches_total",
				Help: "Total fetch calls issued per source",
			},
			[]string{"source"},
		),
		FetchFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightaudit_source_fetch_failures_total",
				Help: "Total failed fetch calls per source",
			},
			[]string{"source"},
		),
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flightaudit_source_fetch_duration_seconds",
				Help:    "Fetch latency distribution per source, pagination included",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"source"},
		),
		FlightsFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flightaudit_flights_fetched_total",
				Help: "Raw flight records fetched per source",
			},
			[]string{"source"},
		),
		QueriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "flightaudit_queries_total",
				Help: "Total audit queries served",
			},
		),
		CacheHitsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "flightaudit_query_cache_hits_total",
				Help: "Audit queries answered from the result cache",
			},
		),
	}
}

// ObserveFetch records one fetch call outcome.
func (r *Registry) ObserveFetch(source string, d time.Duration, ok bool, flights int) {
	r.FetchesTotal.WithLabelValues(source).Inc()
	r.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
	if !ok {
		r.FetchFailuresTotal.WithLabelValues(source).Inc()
		return
	}
	r.FlightsFetched.WithLabelValues(source).Add(float64(flights))
}
