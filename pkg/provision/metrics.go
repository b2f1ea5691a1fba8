package provision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "discuits"
	subsystem = "provision"
)

// Metrics records step outcomes and run summaries
type Metrics struct {
	steps      *prometheus.CounterVec
	lastRun    prometheus.Gauge
	lastFailed prometheus.Gauge
}

// NewMetrics registers the provisioning metrics with reg. A nil reg
// leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "steps_total",
			Help:      "Provisioning steps by step and outcome",
		}, []string{"step", "outcome"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last provisioning run finished",
		}),
		lastFailed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_run_failed_steps",
			Help:      "Number of failed steps in the last provisioning run",
		}),
	}
}

func (m *Metrics) observeStep(r StepResult) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(string(r.Step), string(r.Outcome)).Inc()
}

func (m *Metrics) observeRun(r *Report) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(r.Finished.Unix()))
	m.lastFailed.Set(float64(r.Count(OutcomeFailed)))
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, for the node exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
