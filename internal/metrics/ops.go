package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OpMetrics records per-procedure counts, latency, and connection
// churn for the RPC server.
type OpMetrics interface {
	RecordRequest(procedure string, duration time.Duration, status string)
	RecordBytesTransferred(procedure string, direction string, bytes uint64)
	RecordConnectionAccepted()
	RecordConnectionClosed()
	SetActiveConnections(count int32)
}

type opMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	bytesTransferred    *prometheus.CounterVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
}

// NewOpMetrics returns a Prometheus-backed OpMetrics, or a no-op
// implementation if InitRegistry has not been called.
func NewOpMetrics() OpMetrics {
	if !IsEnabled() {
		return noopMetrics{}
	}
	reg := GetRegistry()

	return &opMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "zippynfs_requests_total",
				Help: "Total RPC requests by procedure and status",
			},
			[]string{"procedure", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zippynfs_request_duration_seconds",
				Help:    "Duration of RPC requests in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"procedure"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "zippynfs_bytes_transferred_total",
				Help: "Total bytes transferred via read/write operations",
			},
			[]string{"procedure", "direction"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "zippynfs_active_connections",
				Help: "Current number of open client connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "zippynfs_connections_accepted_total",
				Help: "Total connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "zippynfs_connections_closed_total",
				Help: "Total connections closed",
			},
		),
	}
}

func (m *opMetrics) RecordRequest(procedure string, duration time.Duration, status string) {
	m.requestsTotal.WithLabelValues(procedure, status).Inc()
	m.requestDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

func (m *opMetrics) RecordBytesTransferred(procedure string, direction string, bytes uint64) {
	m.bytesTransferred.WithLabelValues(procedure, direction).Add(float64(bytes))
}

func (m *opMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *opMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *opMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

type noopMetrics struct{}

func (noopMetrics) RecordRequest(string, time.Duration, string)    {}
func (noopMetrics) RecordBytesTransferred(string, string, uint64)  {}
func (noopMetrics) RecordConnectionAccepted()                      {}
func (noopMetrics) RecordConnectionClosed()                        {}
func (noopMetrics) SetActiveConnections(int32)                     {}
