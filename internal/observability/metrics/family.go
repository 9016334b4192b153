package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// FamilyMetrics contains Prometheus metrics for family messaging.
type FamilyMetrics struct {
	MessagesSent     *prometheus.CounterVec
	MessagesReceived prometheus.Counter
	Recipients       prometheus.Histogram
	ConnectionStatus prometheus.Gauge

	registry *prometheus.Registry
}

// NewFamilyMetrics creates and registers the family messaging metrics.
func NewFamilyMetrics(registry *prometheus.Registry) (*FamilyMetrics, error) {
	m := &FamilyMetrics{
		registry: registry,
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "family_messages_sent_total",
			Help: "Total number of family messages sent by kind and status",
		}, []string{"kind", "status"}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "family_messages_received_total",
			Help: "Total number of family messages received",
		}),
		Recipients: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "family_message_recipients",
			Help:    "Number of recipients per escalation",
			Buckets: prometheus.LinearBuckets(1, 1, 8),
		}),
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "family_broker_connected",
			Help: "1 while the messaging broker connection is up",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register family metrics: %w", err)
	}
	return m, nil
}

// RecordSent records one send.
func (m *FamilyMetrics) RecordSent(kind, status string, recipients int) {
	m.MessagesSent.WithLabelValues(kind, status).Inc()
	m.Recipients.Observe(float64(recipients))
}

// RecordReceived records one received message.
func (m *FamilyMetrics) RecordReceived() { m.MessagesReceived.Inc() }

// UpdateConnectionStatus updates the broker connection gauge.
func (m *FamilyMetrics) UpdateConnectionStatus(connected bool) {
	m.ConnectionStatus.Set(boolGauge(connected))
}

// Collect implements the prometheus.Collector interface.
func (m *FamilyMetrics) Collect(ch chan<- prometheus.Metric) {
	m.MessagesSent.Collect(ch)
	m.MessagesReceived.Collect(ch)
	m.Recipients.Collect(ch)
	m.ConnectionStatus.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *FamilyMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.MessagesSent.Describe(ch)
	m.MessagesReceived.Describe(ch)
	m.Recipients.Describe(ch)
	m.ConnectionStatus.Describe(ch)
}
