package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates the Prometheus instrumentation for the portal:
// HTTP traffic, the announcement cache and the spreadsheet upstream.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	recipientFallbk prometheus.Counter
}

// NewMetricsService registers the portal's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sheets_request_duration_seconds",
		Help:    "Latency of Apps Script upstream calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	upstreamErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheets_request_errors_total",
		Help: "Failed Apps Script upstream calls",
	}, []string{"action"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "announcement_cache_hits_total",
		Help: "Announcement list cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "announcement_cache_misses_total",
		Help: "Announcement list cache misses",
	})

	recipientFallbk := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "announcement_recipient_fallback_total",
		Help: "Announcements whose recipient type fell back to 'visi'",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamLatency, upstreamErrors, cacheHits, cacheMisses, recipientFallbk, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		upstreamLatency: upstreamLatency,
		upstreamErrors:  upstreamErrors,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		recipientFallbk: recipientFallbk,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveUpstream records one Apps Script call.
func (m *MetricsService) ObserveUpstream(action string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(action).Observe(duration.Seconds())
	if err != nil {
		m.upstreamErrors.WithLabelValues(action).Inc()
	}
}

// CacheHit increments the announcement cache hit counter.
func (m *MetricsService) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss increments the announcement cache miss counter.
func (m *MetricsService) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// RecipientFallback counts an announcement whose targeting was unreadable
// and therefore broadcast to everyone. Visibility behavior is unchanged;
// this only makes the fail-open path observable.
func (m *MetricsService) RecipientFallback() {
	if m == nil {
		return
	}
	m.recipientFallbk.Inc()
}
