package rgbwebln

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rgbwebln/rgbwebln/balance"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/transfers"
)

const metricsNamespace = "rgbwebln"

// Request outcomes as reported in the outcome label.
const (
	outcomeOK         = "ok"
	outcomeRejected   = "rejected"
	outcomeNotEnabled = "not_enabled"
	outcomeFailed     = "failed"
)

// Metrics counts what the client sends to its provider and the diagnostics it
// raises. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests            *prometheus.CounterVec
	inconsistencies     *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	rejectedTransitions prometheus.Counter
}

// NewMetrics creates the client's collectors. They still need to be
// registered with Register.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help: "Requests sent to the provider by " +
					"method and outcome",
			},
			[]string{"method", "outcome"},
		),
		inconsistencies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "balance_inconsistencies_total",
				Help: "Inconsistent balance figures reported " +
					"by the provider",
			},
			[]string{"kind"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "transfer_transitions_total",
				Help:      "Accepted transfer status transitions",
			},
			[]string{"status"},
		),
		rejectedTransitions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "transfer_rejections_total",
				Help: "Transfer observations refused as illegal " +
					"successors",
			},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requests, m.inconsistencies, m.transitions,
		m.rejectedTransitions,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// outcome classifies the result of a request.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK

	case errors.Is(err, ErrNotEnabled):
		return outcomeNotEnabled

	case errors.Is(err, rgbrpc.ErrProviderRejected):
		return outcomeRejected

	default:
		return outcomeFailed
	}
}

func (m *Metrics) observeRequest(method string, err error) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, outcome(err)).Inc()
}

func (m *Metrics) observeInconsistency(i balance.Inconsistency) {
	if m == nil {
		return
	}

	m.inconsistencies.WithLabelValues(string(i.Kind)).Inc()
}

func (m *Metrics) observeTransition(t *transfers.Transition) {
	if m == nil {
		return
	}

	m.transitions.WithLabelValues(t.To.String()).Inc()
}

func (m *Metrics) observeRejection() {
	if m == nil {
		return
	}

	m.rejectedTransitions.Inc()
}
