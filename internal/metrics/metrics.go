package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments of the message engine.
type Metrics struct {
	MessagesTotal     *prometheus.CounterVec
	CallErrorsTotal   *prometheus.CounterVec
	FramesDropped     prometheus.Counter
	ConnectionsActive prometheus.Gauge
	HandleDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csms_messages_total",
				Help: "Inbound CALL frames by action",
			},
			[]string{"action"},
		),
		CallErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csms_call_errors_total",
				Help: "CALLERROR frames sent, by error code",
			},
			[]string{"code"},
		),
		FramesDropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "csms_frames_dropped_total",
				Help: "Malformed frames dropped without a response",
			},
		),
		ConnectionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "csms_connections_active",
				Help: "Charge point connections currently open",
			},
		),
		HandleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "csms_handle_duration_seconds",
				Help:    "CALL handling duration by action",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
	}
}
