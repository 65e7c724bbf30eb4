// Package metrics defines the Prometheus collectors of the session layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"umbra/internal/domain"
)

// Metrics groups the collectors. Outcomes are labelled with
// domain.ErrorKind, so "ok" marks success.
type Metrics struct {
	RatchetOperationsTotal       *prometheus.CounterVec
	SealedSenderOperationsTotal  *prometheus.CounterVec
	SessionOperationDurationSecs *prometheus.HistogramVec
}

// New returns unregistered collectors.
func New() *Metrics {
	return &Metrics{
		RatchetOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umbra_ratchet_operations_total",
				Help: "Ratchet encrypt and decrypt operations by outcome.",
			},
			[]string{"op", "result"},
		),
		SealedSenderOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umbra_sealed_sender_operations_total",
				Help: "Sealed-sender seal and unseal operations by outcome.",
			},
			[]string{"op", "result"},
		),
		SessionOperationDurationSecs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "umbra_session_operation_duration_seconds",
				Help:    "Duration of session operations including storage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

// MustRegister registers every collector with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.RatchetOperationsTotal,
		m.SealedSenderOperationsTotal,
		m.SessionOperationDurationSecs,
	)
}

// Ratchet counts one ratchet operation.
func (m *Metrics) Ratchet(op string, err error) {
	m.RatchetOperationsTotal.WithLabelValues(op, domain.ErrorKind(err)).Inc()
}

// Sealed counts one sealed-sender operation.
func (m *Metrics) Sealed(op string, err error) {
	m.SealedSenderOperationsTotal.WithLabelValues(op, domain.ErrorKind(err)).Inc()
}

// Since records the time elapsed since start for op.
func (m *Metrics) Since(op string, start time.Time) {
	m.SessionOperationDurationSecs.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
