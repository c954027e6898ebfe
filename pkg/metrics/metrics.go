// Package metrics exposes Prometheus counters for the override engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Config configures the metrics set.
type Config struct {
	// Namespace is the metrics namespace (default: "flagpin").
	Namespace string

	// Registry is where the collectors are registered. A nil Registry keeps
	// the collectors unregistered, which is what tests usually want.
	Registry prometheus.Registerer
}

// Metrics holds the engine's collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	probes     *prometheus.CounterVec
	installs   *prometheus.CounterVec
	operations *prometheus.CounterVec
	channel    *prometheus.CounterVec
	overrides  prometheus.Gauge
}

// New creates and optionally registers the collectors.
func New(cfg Config) (*Metrics, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "flagpin"
	}

	m := &Metrics{
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "channel",
			Name:      "probes_total",
			Help:      "Liveness probes sent to page agents, by outcome.",
		}, []string{"outcome"}),
		installs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "channel",
			Name:      "installs_total",
			Help:      "Agent install requests, by outcome.",
		}, []string{"outcome"}),
		channel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "channel",
			Name:      "ensure_ready_total",
			Help:      "Channel readiness checks, by final state.",
		}, []string{"state"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "executor",
			Name:      "operations_total",
			Help:      "Page-side operations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		overrides: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "active_overrides",
			Help:      "Overrides currently held by the registry.",
		}),
	}

	if cfg.Registry != nil {
		for _, c := range m.collectors() {
			if err := cfg.Registry.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.probes, m.installs, m.channel, m.operations, m.overrides}
}

// ObserveProbe records one liveness probe.
func (m *Metrics) ObserveProbe(ok bool) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(outcome(ok)).Inc()
}

// ObserveInstall records one install request.
func (m *Metrics) ObserveInstall(ok bool) {
	if m == nil {
		return
	}
	m.installs.WithLabelValues(outcome(ok)).Inc()
}

// ObserveChannel records the final state of one readiness check.
func (m *Metrics) ObserveChannel(state string) {
	if m == nil {
		return
	}
	m.channel.WithLabelValues(state).Inc()
}

// ObserveOperation records one page-side operation.
func (m *Metrics) ObserveOperation(op string, ok bool) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(ok)).Inc()
}

// SetActiveOverrides records the registry size.
func (m *Metrics) SetActiveOverrides(n int) {
	if m == nil {
		return
	}
	m.overrides.Set(float64(n))
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
