package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Sample outcome label values.
const (
	SampleMotion   = "motion"
	SampleStill    = "still"
	SampleBaseline = "baseline"
	SampleError    = "error"
)

// MonitorMetrics contains Prometheus metrics for the motion monitor.
type MonitorMetrics struct {
	SamplesTotal     *prometheus.CounterVec
	MotionIntensity  prometheus.Histogram
	MotionRatio      prometheus.Gauge
	QualifyingTotal  prometheus.Counter
	EscalationsTotal *prometheus.CounterVec
	TimerState       prometheus.Gauge // 0=idle, 1=armed, 2=elapsed
	SessionActive    prometheus.Gauge
	CaptureDuration  prometheus.Histogram

	registry *prometheus.Registry
}

// NewMonitorMetrics creates and registers the monitor metrics.
func NewMonitorMetrics(registry *prometheus.Registry) (*MonitorMetrics, error) {
	m := &MonitorMetrics{
		registry: registry,
		SamplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_samples_total",
			Help: "Total number of frames sampled by outcome",
		}, []string{"result"}),
		MotionIntensity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_motion_intensity",
			Help:    "Average per-pixel change of frames with motion",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		MotionRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_motion_diff_ratio",
			Help: "Fraction of changed pixels in the last compared frame",
		}),
		QualifyingTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_qualifying_patterns_total",
			Help: "Total number of qualifying motion patterns observed",
		}),
		EscalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_escalations_total",
			Help: "Total number of no-motion escalations by status",
		}, []string{"status"}),
		TimerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_timer_state",
			Help: "No-motion timer state (0=idle, 1=armed, 2=elapsed)",
		}),
		SessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_session_active",
			Help: "1 while a monitoring session is running",
		}),
		CaptureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_capture_duration_seconds",
			Help:    "Time taken to fetch and decode one snapshot",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register monitor metrics: %w", err)
	}
	return m, nil
}

// RecordSample records one sampled frame.
func (m *MonitorMetrics) RecordSample(result string, intensity, ratio float64) {
	m.SamplesTotal.WithLabelValues(result).Inc()
	if result == SampleMotion {
		m.MotionIntensity.Observe(intensity)
	}
	if result == SampleMotion || result == SampleStill {
		m.MotionRatio.Set(ratio)
	}
}

// RecordQualifying records a qualifying pattern.
func (m *MonitorMetrics) RecordQualifying() { m.QualifyingTotal.Inc() }

// RecordEscalation records an escalation attempt.
func (m *MonitorMetrics) RecordEscalation(status string) {
	m.EscalationsTotal.WithLabelValues(status).Inc()
}

// SetTimerState updates the timer state gauge.
func (m *MonitorMetrics) SetTimerState(state int) { m.TimerState.Set(float64(state)) }

// SetSessionActive updates the session gauge.
func (m *MonitorMetrics) SetSessionActive(active bool) { m.SessionActive.Set(boolGauge(active)) }

// ObserveCapture records the duration of one capture.
func (m *MonitorMetrics) ObserveCapture(seconds float64) { m.CaptureDuration.Observe(seconds) }

// Collect implements the prometheus.Collector interface.
func (m *MonitorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.SamplesTotal.Collect(ch)
	m.MotionIntensity.Collect(ch)
	m.MotionRatio.Collect(ch)
	m.QualifyingTotal.Collect(ch)
	m.EscalationsTotal.Collect(ch)
	m.TimerState.Collect(ch)
	m.SessionActive.Collect(ch)
	m.CaptureDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *MonitorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.SamplesTotal.Describe(ch)
	m.MotionIntensity.Describe(ch)
	m.MotionRatio.Describe(ch)
	m.QualifyingTotal.Describe(ch)
	m.EscalationsTotal.Describe(ch)
	m.TimerState.Describe(ch)
	m.SessionActive.Describe(ch)
	m.CaptureDuration.Describe(ch)
}
