// Package metrics exposes Prometheus instrumentation for the engine:
// counters for frames sent/retransmitted/dropped/delivered, and gauges
// for live window/queue occupancy collected on scrape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the promauto-registered counters and histograms the
// engine updates as it runs.
type Metrics struct {
	FramesSent           *prometheus.CounterVec
	FramesDelivered      *prometheus.CounterVec
	FramesDropped        *prometheus.CounterVec
	Retransmissions      *prometheus.CounterVec
	Timeouts             *prometheus.CounterVec
	AcksAccepted         *prometheus.CounterVec
	SerializationSeconds *prometheus.HistogramVec
}

// New creates a Metrics instance, registering its collectors under the
// given namespace/subsystem.
func New(namespace, subsystem string) *Metrics {
	return &Metrics{
		FramesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "frames_sent_total",
				Help:      "Total data and ack frames handed to the channel.",
			},
			[]string{"endpoint", "kind"},
		),
		FramesDelivered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "frames_delivered_total",
				Help:      "In-order data frames delivered to the upper layer.",
			},
			[]string{"endpoint"},
		),
		FramesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "frames_dropped_total",
				Help:      "Frames discarded, by reason.",
			},
			[]string{"endpoint", "reason"},
		),
		Retransmissions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "retransmissions_total",
				Help:      "Window entries re-sent following a go-back-n timeout.",
			},
			[]string{"endpoint"},
		),
		Timeouts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "timeouts_total",
				Help:      "Retransmission-deadline expirations, including stale fires.",
			},
			[]string{"endpoint"},
		),
		AcksAccepted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "acks_accepted_total",
				Help:      "ACKs that passed the sequence gate and advanced the window.",
			},
			[]string{"endpoint"},
		),
		SerializationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "serialization_delay_seconds",
				Help:      "Computed per-frame serialization delay.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"endpoint"},
		),
	}
}
