// Package observability exposes Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	syncItemsTotal   *prometheus.CounterVec
	resolutionsTotal *prometheus.CounterVec
	staleRules       prometheus.Gauge
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helios_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "helios_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	syncItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helios_sync_items_total",
		Help: "Processed sync batch items by entity and outcome.",
	}, []string{"entity", "status"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helios_price_resolutions_total",
		Help: "Price resolutions by winning specificity tier.",
	}, []string{"level"})
	staleRules := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "helios_stale_price_rules",
		Help: "Count of special price rules past their end date but still active.",
	})
	registry.MustRegister(requests, duration, syncItems, resolutions, staleRules)
	return &Metrics{
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		syncItemsTotal:   syncItems,
		resolutionsTotal: resolutions,
		staleRules:       staleRules,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSyncItem counts one processed batch item.
func (m *Metrics) ObserveSyncItem(entity, status string) {
	if m == nil {
		return
	}
	m.syncItemsTotal.WithLabelValues(entity, status).Inc()
}

// ObserveResolution counts one price resolution by winning tier.
func (m *Metrics) ObserveResolution(level string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(level).Inc()
}

// SetStaleRules publishes the stale-rule audit result.
func (m *Metrics) SetStaleRules(n float64) {
	if m == nil {
		return
	}
	m.staleRules.Set(n)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
