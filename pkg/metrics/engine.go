package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records cart operation outcomes and queue pressure.
type EngineMetrics struct {
	duration   *prometheus.HistogramVec
	settled    *prometheus.CounterVec
	failed     *prometheus.CounterVec
	queueDepth prometheus.Gauge
	broadcasts prometheus.Counter
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_op_duration_seconds",
		Help:    "Duration of cart operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_op_settled_total",
		Help: "Cart operations that settled successfully.",
	}, []string{"op"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_op_failed_total",
		Help: "Cart operations that failed.",
	}, []string{"op", "code"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_op_queue_depth",
		Help: "Operations waiting in the engine queue.",
	})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_badge_broadcasts_total",
		Help: "Badge snapshot broadcasts emitted after debouncing.",
	})
	reg.MustRegister(duration, settled, failed, queueDepth, broadcasts)
	return &EngineMetrics{
		duration:   duration,
		settled:    settled,
		failed:     failed,
		queueDepth: queueDepth,
		broadcasts: broadcasts,
	}
}

// ObserveDuration records the duration for the named operation.
func (e *EngineMetrics) ObserveDuration(op string, duration time.Duration) {
	if e == nil || e.duration == nil {
		return
	}
	e.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSettled increments the settled counter for the named operation.
func (e *EngineMetrics) IncSettled(op string) {
	if e == nil || e.settled == nil {
		return
	}
	e.settled.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailed increments the failure counter for the named operation and error code.
func (e *EngineMetrics) IncFailed(op, code string) {
	if e == nil || e.failed == nil {
		return
	}
	e.failed.WithLabelValues(normalizeLabel(op), normalizeLabel(code)).Inc()
}

// SetQueueDepth reports the current engine queue depth.
func (e *EngineMetrics) SetQueueDepth(depth int) {
	if e == nil || e.queueDepth == nil {
		return
	}
	e.queueDepth.Set(float64(depth))
}

// IncBroadcast counts one emitted badge broadcast.
func (e *EngineMetrics) IncBroadcast() {
	if e == nil || e.broadcasts == nil {
		return
	}
	e.broadcasts.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
