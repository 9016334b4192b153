package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ReminderMetrics contains Prometheus metrics for the slot scheduler.
type ReminderMetrics struct {
	TicksTotal         prometheus.Counter
	FiredTotal         *prometheus.CounterVec
	PersistErrorsTotal prometheus.Counter
	ResolveErrorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewReminderMetrics creates and registers the scheduler metrics.
func NewReminderMetrics(registry *prometheus.Registry) (*ReminderMetrics, error) {
	m := &ReminderMetrics{
		registry: registry,
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminder_ticks_total",
			Help: "Total number of scheduler ticks evaluated",
		}),
		FiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_fired_total",
			Help: "Total number of slot reminders fired",
		}, []string{"slot"}),
		PersistErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reminder_persist_errors_total",
			Help: "Failures to persist the last-notified marker",
		}),
		ResolveErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminder_resolve_errors_total",
			Help: "Slot times that could not be resolved to a clock time",
		}, []string{"slot"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register reminder metrics: %w", err)
	}
	return m, nil
}

// RecordTick records one evaluated tick.
func (m *ReminderMetrics) RecordTick() { m.TicksTotal.Inc() }

// RecordFired records a fired reminder for slot.
func (m *ReminderMetrics) RecordFired(slot string) { m.FiredTotal.WithLabelValues(slot).Inc() }

// RecordPersistError records a failed last-notified write.
func (m *ReminderMetrics) RecordPersistError() { m.PersistErrorsTotal.Inc() }

// RecordResolveError records an unresolvable slot time.
func (m *ReminderMetrics) RecordResolveError(slot string) {
	m.ResolveErrorsTotal.WithLabelValues(slot).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *ReminderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.TicksTotal.Collect(ch)
	m.FiredTotal.Collect(ch)
	m.PersistErrorsTotal.Collect(ch)
	m.ResolveErrorsTotal.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ReminderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.TicksTotal.Describe(ch)
	m.FiredTotal.Describe(ch)
	m.PersistErrorsTotal.Describe(ch)
	m.ResolveErrorsTotal.Describe(ch)
}
