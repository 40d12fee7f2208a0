package metricsndmp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// prometheusMetrics is the Prometheus-backed implementation of Metrics:
// promauto-registered vectors, nil-receiver guards so a nil
// *prometheusMetrics behaves like a disabled collector.
type prometheusMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	sessionsActive   prometheus.Gauge
	sessionsTotal    prometheus.Counter
	dataStateTotal   *prometheus.CounterVec
	moverStateTotal  *prometheus.CounterVec
	bytesMovedTotal  *prometheus.CounterVec
	tapeFlushTotal   *prometheus.CounterVec
	tapeFlushSeconds prometheus.Histogram
	notifyTotal      *prometheus.CounterVec
}

// New creates a Prometheus-backed Metrics instance. Returns nil if
// InitRegistry has not been called, so callers can pass the result
// straight into constructors that accept a Metrics interface.
func New() Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()

	return &prometheusMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndmpd_requests_total",
				Help: "Total NDMP control messages processed, by message code and error code",
			},
			[]string{"message", "error"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ndmpd_request_duration_milliseconds",
				Help:    "Duration of NDMP control message handling in milliseconds",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			[]string{"message"},
		),
		sessionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "ndmpd_sessions_active",
				Help: "Current number of open DMA control connections",
			},
		),
		sessionsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ndmpd_sessions_total",
				Help: "Total DMA control connections accepted",
			},
		),
		dataStateTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndmpd_data_state_transitions_total",
				Help: "Total DATA subsystem state transitions, by resulting state",
			},
			[]string{"state"},
		),
		moverStateTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndmpd_mover_state_transitions_total",
				Help: "Total MOVER subsystem state transitions, by resulting state",
			},
			[]string{"state"},
		),
		bytesMovedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndmpd_bytes_moved_total",
				Help: "Total bytes moved to/from the tape backend, by direction",
			},
			[]string{"direction"},
		),
		tapeFlushTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndmpd_tape_flush_total",
				Help: "Total tape flush operations, by status",
			},
			[]string{"status"},
		),
		tapeFlushSeconds: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ndmpd_tape_flush_duration_seconds",
				Help:    "Duration of tape flush operations",
				Buckets: prometheus.DefBuckets,
			},
		),
		notifyTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ndmpd_notify_total",
				Help: "Total unsolicited notify messages sent to DMAs, by message code",
			},
			[]string{"message"},
		),
	}
}

func (m *prometheusMetrics) RecordRequest(messageCode string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(messageCode, errorCode).Inc()
	m.requestDuration.WithLabelValues(messageCode).Observe(duration.Seconds() * 1000)
}

func (m *prometheusMetrics) RecordSessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
	m.sessionsTotal.Inc()
}

func (m *prometheusMetrics) RecordSessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *prometheusMetrics) RecordDataState(state string) {
	if m == nil {
		return
	}
	m.dataStateTotal.WithLabelValues(state).Inc()
}

func (m *prometheusMetrics) RecordMoverState(state string) {
	if m == nil {
		return
	}
	m.moverStateTotal.WithLabelValues(state).Inc()
}

func (m *prometheusMetrics) RecordBytesMoved(direction string, bytes uint64) {
	if m == nil || bytes == 0 {
		return
	}
	m.bytesMovedTotal.WithLabelValues(direction).Add(float64(bytes))
}

func (m *prometheusMetrics) RecordTapeFlush(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.tapeFlushTotal.WithLabelValues(status).Inc()
	m.tapeFlushSeconds.Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordNotify(messageCode string) {
	if m == nil {
		return
	}
	m.notifyTotal.WithLabelValues(messageCode).Inc()
}
