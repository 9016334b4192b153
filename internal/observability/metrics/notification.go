package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains all Prometheus metrics related to notification dispatch and push delivery.
type NotificationMetrics struct {
	// Dispatcher metrics
	DispatchTotal    *prometheus.CounterVec   // Dispatch results by channel, kind, status
	DispatchDuration *prometheus.HistogramVec // Latency by channel
	BannersTotal     *prometheus.CounterVec   // In-page banners raised by reason

	// Push channel metrics
	PushDeduplicatedTotal    prometheus.Counter
	PushRateLimitedTotal     prometheus.Counter
	PushRetryAttempts        *prometheus.CounterVec
	PushCircuitBreakerState  *prometheus.GaugeVec // 0=closed, 1=half-open, 2=open
	PushConsecutiveFailures  *prometheus.GaugeVec
	PushHealthStatus         *prometheus.GaugeVec
	PushLastSuccessTimestamp *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewNotificationMetrics creates and registers the notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_total",
			Help: "Total number of notification dispatches by channel, kind and status",
		},
		[]string{"channel", "kind", "status"}, // status: delivered, unconfirmed, blocked, failed
	)

	m.DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_dispatch_duration_seconds",
			Help:    "Time taken to hand a notification to a channel",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"channel"},
	)

	m.BannersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_banners_total",
			Help: "Total number of in-page banners raised",
		},
		[]string{"reason"}, // reason: unconfirmed, clicked
	)

	m.PushDeduplicatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_push_deduplicated_total",
			Help: "Push notifications dropped because the same tag was sent recently",
		},
	)

	m.PushRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_push_rate_limited_total",
			Help: "Push notifications rejected by the rate limiter",
		},
	)

	m.PushRetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_push_retry_attempts_total",
			Help: "Total number of push retry attempts by provider",
		},
		[]string{"provider"},
	)

	m.PushCircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_push_circuit_breaker_state",
			Help: "Circuit breaker state for the push provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	m.PushConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_push_consecutive_failures",
			Help: "Number of consecutive failures for the push provider",
		},
		[]string{"provider"},
	)

	m.PushHealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_push_health_status",
			Help: "Current health status of the push provider (1=healthy, 0=unhealthy)",
		},
		[]string{"provider"},
	)

	m.PushLastSuccessTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_push_last_success_timestamp_seconds",
			Help: "Timestamp of the last successful push delivery",
		},
		[]string{"provider"},
	)
}

// RecordDispatch records one dispatch result.
func (m *NotificationMetrics) RecordDispatch(channel, kind, status string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(channel, kind, status).Inc()
	m.DispatchDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordBanner records a raised in-page banner.
func (m *NotificationMetrics) RecordBanner(reason string) {
	m.BannersTotal.WithLabelValues(reason).Inc()
}

// RecordPushDeduplicated records a push dropped by tag deduplication.
func (m *NotificationMetrics) RecordPushDeduplicated() {
	m.PushDeduplicatedTotal.Inc()
}

// RecordPushRateLimited records a push rejected by the rate limiter.
func (m *NotificationMetrics) RecordPushRateLimited() {
	m.PushRateLimitedTotal.Inc()
}

// RecordRetryAttempt records a push retry.
func (m *NotificationMetrics) RecordRetryAttempt(provider string) {
	m.PushRetryAttempts.WithLabelValues(provider).Inc()
}

// RecordPushSuccess records a successful push delivery.
func (m *NotificationMetrics) RecordPushSuccess(provider string) {
	m.PushLastSuccessTimestamp.WithLabelValues(provider).SetToCurrentTime()
	m.PushConsecutiveFailures.WithLabelValues(provider).Set(0)
}

// UpdateHealthStatus updates the health status of a provider.
func (m *NotificationMetrics) UpdateHealthStatus(provider string, healthy bool) {
	m.PushHealthStatus.WithLabelValues(provider).Set(boolGauge(healthy))
}

// UpdateCircuitBreakerState updates the circuit breaker state.
// state: 0=closed, 1=half-open, 2=open
func (m *NotificationMetrics) UpdateCircuitBreakerState(provider string, state int) {
	m.PushCircuitBreakerState.WithLabelValues(provider).Set(float64(state))
}

// IncrementConsecutiveFailures increments the consecutive failure count.
func (m *NotificationMetrics) IncrementConsecutiveFailures(provider string) {
	m.PushConsecutiveFailures.WithLabelValues(provider).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DispatchTotal.Collect(ch)
	m.DispatchDuration.Collect(ch)
	m.BannersTotal.Collect(ch)
	m.PushDeduplicatedTotal.Collect(ch)
	m.PushRateLimitedTotal.Collect(ch)
	m.PushRetryAttempts.Collect(ch)
	m.PushCircuitBreakerState.Collect(ch)
	m.PushConsecutiveFailures.Collect(ch)
	m.PushHealthStatus.Collect(ch)
	m.PushLastSuccessTimestamp.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DispatchTotal.Describe(ch)
	m.DispatchDuration.Describe(ch)
	m.BannersTotal.Describe(ch)
	m.PushDeduplicatedTotal.Describe(ch)
	m.PushRateLimitedTotal.Describe(ch)
	m.PushRetryAttempts.Describe(ch)
	m.PushCircuitBreakerState.Describe(ch)
	m.PushConsecutiveFailures.Describe(ch)
	m.PushHealthStatus.Describe(ch)
	m.PushLastSuccessTimestamp.Describe(ch)
}
