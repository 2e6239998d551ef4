package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/slot-booking/internal/models"
)

// Request outcomes used as metric labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// SlotCounter reports how many slots are in each state.
type SlotCounter interface {
	StateCounts() map[models.SlotState]int
}

// MetricsService encapsulates Prometheus instrumentation for the socket
// server and the admin API.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	socketDuration    *prometheus.HistogramVec
	socketTotal       *prometheus.CounterVec
	activeConnections prometheus.Gauge
	httpDuration      *prometheus.HistogramVec
	httpTotal         *prometheus.CounterVec

	slots SlotCounter

	requestCount         uint64
	requestFailures      uint64
	requestDurationTotal uint64
	connections          int64
}

// NewMetricsService registers core Prometheus collectors. slots may be nil.
func NewMetricsService(slots SlotCounter) *MetricsService {
	registry := prometheus.NewRegistry()

	socketDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "booking_request_duration_seconds",
		Help:    "Duration of socket requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	socketTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_requests_total",
		Help: "Total number of socket requests",
	}, []string{"type", "outcome"})

	activeConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "booking_active_connections",
		Help: "Connections currently being served",
	})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of admin HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of admin HTTP requests",
	}, []string{"method", "path", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(socketDuration, socketTotal, activeConnections, httpDuration, httpTotal, goroutines)

	m := &MetricsService{
		registry:          registry,
		socketDuration:    socketDuration,
		socketTotal:       socketTotal,
		activeConnections: activeConnections,
		httpDuration:      httpDuration,
		httpTotal:         httpTotal,
		slots:             slots,
	}

	if slots != nil {
		for _, state := range []models.SlotState{models.SlotAvailable, models.SlotBasketed, models.SlotReserved} {
			state := state
			registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "booking_slots",
				Help:        "Number of slots per state",
				ConstLabels: prometheus.Labels{"state": state.String()},
			}, func() float64 {
				return float64(slots.StateCounts()[state])
			}))
		}
	}

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one socket request.
func (m *MetricsService) ObserveRequest(requestType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if requestType == "" {
		requestType = "UNKNOWN"
	}
	m.socketDuration.WithLabelValues(requestType).Observe(duration.Seconds())
	m.socketTotal.WithLabelValues(requestType, outcome).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
	if outcome != OutcomeOK {
		atomic.AddUint64(&m.requestFailures, 1)
	}
}

// ConnectionOpened increments the active connection gauge.
func (m *MetricsService) ConnectionOpened() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.connections, 1)
	m.activeConnections.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func (m *MetricsService) ConnectionClosed() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.connections, -1)
	m.activeConnections.Dec()
}

// ObserveHTTPRequest records admin request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.httpDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// Snapshot returns aggregated metrics for the admin stats endpoint.
func (m *MetricsService) Snapshot() models.ServerStats {
	if m == nil {
		return models.ServerStats{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	failures := atomic.LoadUint64(&m.requestFailures)
	duration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(duration) / float64(requests) / float64(time.Millisecond)
	}

	slots := map[string]int{}
	if m.slots != nil {
		for state, n := range m.slots.StateCounts() {
			slots[state.String()] = n
		}
	}

	return models.ServerStats{
		RequestsTotal:            requests,
		RequestsFailed:           failures,
		AverageRequestDurationMs: avgRequestMs,
		ActiveConnections:        atomic.LoadInt64(&m.connections),
		Slots:                    slots,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
