// Package observability collects the Prometheus metrics exposed on the gated
// admin surface.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/reconcile"
)

// Metrics gathers the application's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	reconcileItems  *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_session_transitions_total",
		Help: "Session status transitions by origin and target status.",
	}, []string{"from", "to"})
	reconcileItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_reconcile_items_total",
		Help: "Guest items handled by reconciliation, by kind and outcome.",
	}, []string{"kind", "outcome"})
	registry.MustRegister(requests, duration, transitions, reconcileItems)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		transitions:     transitions,
		reconcileItems:  reconcileItems,
	}
}

// Handler returns the http.Handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
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

// ObserveTransition counts one session status transition.
func (m *Metrics) ObserveTransition(from, to authz.Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveReconcile counts the per-item outcomes of one merge run.
func (m *Metrics) ObserveReconcile(s reconcile.Summary) {
	if m == nil {
		return
	}
	m.reconcileItems.WithLabelValues("cart", "submitted").Add(float64(s.CartSubmitted))
	m.reconcileItems.WithLabelValues("cart", "failed").Add(float64(s.CartFailed))
	m.reconcileItems.WithLabelValues("favorite", "submitted").Add(float64(s.FavoritesSubmitted))
	m.reconcileItems.WithLabelValues("favorite", "duplicate").Add(float64(s.FavoritesDuplicate))
	m.reconcileItems.WithLabelValues("favorite", "failed").Add(float64(s.FavoritesFailed))
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
