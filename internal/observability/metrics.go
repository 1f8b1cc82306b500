package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the portal's Prometheus series on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	guardDecisions  *prometheus.CounterVec
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	statsCache      *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
}

// NewMetrics builds the registry and registers every series.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	guard := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_route_guard_decisions_total",
		Help: "Route guard outcomes by state and reason.",
	}, []string{"state", "reason"})
	backendCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_backend_requests_total",
		Help: "Calls to the portal REST API by method and status code.",
	}, []string{"method", "code"})
	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_backend_request_duration_seconds",
		Help:    "Latency of portal REST API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	statsCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_dashboard_stats_cache_total",
		Help: "Dashboard stats cache lookups by result.",
	}, []string{"result"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_jobs_total",
		Help: "Background job executions by task and outcome.",
	}, []string{"task", "outcome"})
	registry.MustRegister(requests, duration, guard, backendCalls, backendDuration, statsCache, jobs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		guardDecisions:  guard,
		backendCalls:    backendCalls,
		backendDuration: backendDuration,
		statsCache:      statsCache,
		jobsTotal:       jobs,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every HTTP request by route pattern.
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

// ObserveGuard records one route guard outcome.
func (m *Metrics) ObserveGuard(state, reason string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(state, reason).Inc()
}

// ObserveBackend records a REST API call. code is 0 for transport failures.
func (m *Metrics) ObserveBackend(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.backendDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveStatsCache records a dashboard stats cache hit or miss.
func (m *Metrics) ObserveStatsCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.statsCache.WithLabelValues(result).Inc()
}

// ObserveJob records a background job execution.
func (m *Metrics) ObserveJob(task string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.jobsTotal.WithLabelValues(task, outcome).Inc()
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
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
