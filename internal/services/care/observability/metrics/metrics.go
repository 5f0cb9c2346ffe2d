// Package metrics exposes Prometheus instrumentation for the care engine.
//
// Metrics live on a private registry so tests and embedded engines never
// collide with the process default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carepaths"

// Outcome classifies how a command execution ended.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Metrics records command and event log activity. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	commands          *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	eventsAppended    *prometheus.CounterVec
	sequenceConflicts *prometheus.CounterVec
}

// New creates the care metrics on a fresh registry. Go runtime and process
// collectors are registered alongside them.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands executed, by command type and outcome",
			},
			[]string{"type", "outcome"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Command execution latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		eventsAppended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_appended_total",
				Help:      "Events appended to patient event logs, by event type",
			},
			[]string{"type"},
		),
		sequenceConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sequence_conflicts_total",
				Help:      "Appends retried after a concurrent write, by command type",
			},
			[]string{"type"},
		),
	}
	registry.MustRegister(
		m.commands,
		m.commandDuration,
		m.eventsAppended,
		m.sequenceConflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCommand records one finished command execution.
func (m *Metrics) ObserveCommand(commandType string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(commandType, string(outcome)).Inc()
	m.commandDuration.WithLabelValues(commandType).Observe(elapsed.Seconds())
}

// AddEventsAppended counts one appended event per entry of eventTypes.
func (m *Metrics) AddEventsAppended(eventTypes ...string) {
	if m == nil {
		return
	}
	for _, eventType := range eventTypes {
		m.eventsAppended.WithLabelValues(eventType).Inc()
	}
}

// ObserveSequenceConflict counts an append that lost a race and was retried.
func (m *Metrics) ObserveSequenceConflict(commandType string) {
	if m == nil {
		return
	}
	m.sequenceConflicts.WithLabelValues(commandType).Inc()
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
