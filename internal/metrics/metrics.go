// Package metrics exposes application metrics in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodtracker"

// Lookup outcomes recorded for the external food database.
const (
	OutcomeOK          = "ok"
	OutcomeBadStatus   = "bad_status"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Metrics owns a private registry and the application's collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	lookups           *prometheus.CounterVec
	lookupDuration    prometheus.Histogram
	searchResults     *prometheus.HistogramVec
	productsMutations *prometheus.CounterVec
}

// New creates the registry and registers every collector, including the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "food_database",
			Name:      "lookups_total",
			Help:      "External food database lookups, by outcome.",
		},
		[]string{"outcome"},
	)
	m.lookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "food_database",
			Name:      "lookup_duration_seconds",
			Help:      "External food database lookup latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
	m.searchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Results returned per search, by source.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"source"},
	)
	m.productsMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "mutations_total",
			Help:      "Products added or deleted.",
		},
		[]string{"op"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.lookups,
		m.lookupDuration,
		m.searchResults,
		m.productsMutations,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveLookup records one external food database call.
func (m *Metrics) ObserveLookup(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
	m.lookupDuration.Observe(elapsed.Seconds())
}

// ObserveSearch records how many results each source contributed.
func (m *Metrics) ObserveSearch(local, external int) {
	if m == nil {
		return
	}
	m.searchResults.WithLabelValues("local").Observe(float64(local))
	m.searchResults.WithLabelValues("external").Observe(float64(external))
}

// CatalogChanged counts a product add or delete.
func (m *Metrics) CatalogChanged(op string) {
	if m == nil {
		return
	}
	m.productsMutations.WithLabelValues(op).Inc()
}
