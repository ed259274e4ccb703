package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcome labels.
const (
	GenerationSucceeded  = "success"
	GenerationInfeasible = "infeasible"
	GenerationBudget     = "budget_exceeded"
	GenerationInvalid    = "invalid_input"
	GenerationFailed     = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generations          *prometheus.CounterVec
	generationDuration   prometheus.Observer
	generationIterations prometheus.Observer
	generationsInFlight  prometheus.Gauge
	transitions          *prometheus.CounterVec
	exports              *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generations_total",
		Help: "Timetable generation runs by outcome",
	}, []string{"outcome"})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Wall-clock time spent searching for a timetable",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 40},
	})

	generationIterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_iterations",
		Help:    "Candidate evaluations per generation run",
		Buckets: prometheus.ExponentialBuckets(10, 10, 7),
	})

	generationsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_generations_in_flight",
		Help: "Generation runs queued or executing",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_transitions_total",
		Help: "Draft workflow transitions by action and result",
	}, []string{"action", "result"})

	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_exports_total",
		Help: "Rendered timetable exports by format",
	}, []string{"format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		generations, generationDuration, generationIterations, generationsInFlight,
		transitions, exports, goroutines,
	)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		cacheLatency:         cacheLatency,
		cacheWrite:           cacheWrite,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
		generations:          generations,
		generationDuration:   generationDuration,
		generationIterations: generationIterations,
		generationsInFlight:  generationsInFlight,
		transitions:          transitions,
		exports:              exports,
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

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGeneration records one generation run.
func (m *MetricsService) ObserveGeneration(outcome string, duration time.Duration, iterations int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(duration.Seconds())
	if iterations > 0 {
		m.generationIterations.Observe(float64(iterations))
	}
}

// SetGenerationsInFlight publishes the generation pool occupancy.
func (m *MetricsService) SetGenerationsInFlight(n int) {
	if m == nil {
		return
	}
	m.generationsInFlight.Set(float64(n))
}

// RecordTransition counts a workflow transition attempt.
func (m *MetricsService) RecordTransition(action string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

// RecordExport counts a rendered export.
func (m *MetricsService) RecordExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}
