package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for queue operation counters.
const (
	OutcomeOK       = "ok"
	OutcomeFull     = "full"
	OutcomeEmpty    = "empty"
	OutcomeTooLarge = "too_large"
	OutcomeFault    = "fault"
)

// Metrics holds all Prometheus metrics for the device service.
type Metrics struct {
	// Queue metrics
	QueueDepth   prometheus.Gauge
	EnqueueTotal *prometheus.CounterVec
	DequeueTotal *prometheus.CounterVec
	MessageBytes prometheus.Histogram

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),
		registry:  reg,

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chardevd_queue_depth",
			Help: "Number of messages currently stored in the queue",
		}),
		EnqueueTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chardevd_enqueue_total",
				Help: "Total enqueue attempts by outcome",
			},
			[]string{"outcome"},
		),
		DequeueTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chardevd_dequeue_total",
				Help: "Total dequeue attempts by outcome",
			},
			[]string{"outcome"},
		),
		MessageBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chardevd_message_bytes",
			Help:    "Size of successfully enqueued messages in bytes",
			Buckets: []float64{0, 16, 64, 256, 1024, 2048, 4096},
		}),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chardevd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chardevd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"method", "path"},
		),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chardevd_ws_connections",
			Help: "Currently open WebSocket device sessions",
		}),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chardevd_uptime_seconds",
			Help: "Service uptime in seconds",
		}),
	}
}

// RecordEnqueue records one enqueue attempt and, on success, the new depth.
func (m *Metrics) RecordEnqueue(outcome string, size int, depth int) {
	m.EnqueueTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.MessageBytes.Observe(float64(size))
		m.QueueDepth.Set(float64(depth))
	}
}

// RecordDequeue records one dequeue attempt and, on success, the new depth.
func (m *Metrics) RecordDequeue(outcome string, depth int) {
	m.DequeueTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.QueueDepth.Set(float64(depth))
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving this collector's registry. The
// uptime gauge is refreshed on every scrape.
func (m *Metrics) Handler() http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
		inner.ServeHTTP(w, r)
	})
}
