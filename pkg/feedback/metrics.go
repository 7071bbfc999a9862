// Copyright 2025 Certen Protocol

package feedback

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts chain-validation lifecycle events as Prometheus
// metrics.
type MetricsSink struct {
	validationsStarted    prometheus.Counter
	certificatesValidated prometheus.Counter
	validationsCompleted  prometheus.Counter
}

// NewMetricsSink registers the sink's counters with reg and returns
// the sink. Registering twice against the same registry fails, so
// construct one MetricsSink per process.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	s := &MetricsSink{
		validationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certen_chain_validations_started_total",
			Help: "Number of chain validations started.",
		}),
		certificatesValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certen_certificates_validated_total",
			Help: "Number of certificates that passed self-hash and signature checks.",
		}),
		validationsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certen_chain_validations_completed_total",
			Help: "Number of chains validated down to an accepted genesis certificate.",
		}),
	}
	for _, c := range []prometheus.Collector{s.validationsStarted, s.certificatesValidated, s.validationsCompleted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SendEvent implements Sink.
func (s *MetricsSink) SendEvent(event Event) {
	switch event.Kind {
	case EventChainValidationStarted:
		s.validationsStarted.Inc()
	case EventCertificateValidated:
		s.certificatesValidated.Inc()
	case EventChainValidated:
		s.validationsCompleted.Inc()
	}
}
