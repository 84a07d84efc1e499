// Package metrics exposes tracing session statistics as Prometheus metrics
// and can dump them in the node-exporter textfile format at teardown.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/daryltucker/onetrace/internal/model"
)

// Metrics holds the session collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	CollectorsActive  *prometheus.GaugeVec
	CollectorFailures *prometheus.CounterVec
	TraceEvents       *prometheus.CounterVec
	TraceDropped      *prometheus.CounterVec
	BusyTime          *prometheus.GaugeVec
	Operations        *prometheus.GaugeVec
	SessionDuration   prometheus.Gauge
}

// New registers every metric on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		CollectorsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "onetrace_collectors_active",
				Help: "Collectors currently live (1) or destroyed (0)",
			},
			[]string{"domain", "backend"},
		),
		CollectorFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onetrace_collector_failures_total",
				Help: "Collectors that failed to initialize",
			},
			[]string{"domain", "backend"},
		),
		TraceEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onetrace_trace_events_total",
				Help: "Complete events appended to the trace file",
			},
			[]string{"domain", "backend"},
		),
		TraceDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onetrace_trace_events_dropped_total",
				Help: "Complete events that could not be appended",
			},
			[]string{"domain", "backend"},
		),
		BusyTime: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "onetrace_busy_time_nanoseconds",
				Help: "Sum of operation time per backend at drain",
			},
			[]string{"domain", "backend"},
		),
		Operations: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "onetrace_operations",
				Help: "Completed operations per backend at drain",
			},
			[]string{"domain", "backend"},
		),
		SessionDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "onetrace_session_duration_nanoseconds",
				Help: "Wall time between tracer creation and teardown",
			},
		),
	}
}

func labels(d model.Domain, b model.Backend) prometheus.Labels {
	return prometheus.Labels{"domain": d.String(), "backend": b.String()}
}

// CollectorStarted marks a collector as live.
func (m *Metrics) CollectorStarted(d model.Domain, b model.Backend) {
	m.CollectorsActive.With(labels(d, b)).Set(1)
}

// CollectorStopped marks a collector as destroyed.
func (m *Metrics) CollectorStopped(d model.Domain, b model.Backend) {
	m.CollectorsActive.With(labels(d, b)).Set(0)
}

// CollectorFailed counts a failed construction.
func (m *Metrics) CollectorFailed(d model.Domain, b model.Backend) {
	m.CollectorFailures.With(labels(d, b)).Inc()
}

// EventWritten counts an appended trace event; ok=false counts a drop.
func (m *Metrics) EventWritten(d model.Domain, b model.Backend, ok bool) {
	if ok {
		m.TraceEvents.With(labels(d, b)).Inc()
		return
	}
	m.TraceDropped.With(labels(d, b)).Inc()
}

// ObserveAggregates records the drained statistics of one collector.
func (m *Metrics) ObserveAggregates(d model.Domain, b model.Backend, infos model.InfoMap) {
	var total, calls uint64
	for _, st := range infos {
		total += st.TotalTime
		calls += st.CallCount
	}
	m.BusyTime.With(labels(d, b)).Set(float64(total))
	m.Operations.With(labels(d, b)).Set(float64(calls))
}

// WriteTextfile dumps the registry to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
