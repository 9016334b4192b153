package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed means requests flow normally.
	StateClosed CircuitState = iota
	// StateHalfOpen means the provider is being probed after a cool-down.
	StateHalfOpen
	// StateOpen means requests are rejected.
	StateOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitBreakerOpen is returned when the circuit breaker is open.
	ErrCircuitBreakerOpen = errors.Newf("circuit breaker is open").
				Component("notification").
				Category(errors.CategoryLimit).
				Build()
	// ErrTooManyRequests is returned when the half-open probe slot is taken.
	ErrTooManyRequests = errors.Newf("circuit breaker is half-open, too many requests").
				Component("notification").
				Category(errors.CategoryLimit).
				Build()
)

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int
	// Timeout is how long to wait before transitioning from Open to Half-Open.
	Timeout time.Duration
	// HalfOpenMaxRequests is the maximum number of requests allowed in half-open state.
	HalfOpenMaxRequests int
}

// DefaultCircuitBreakerConfig returns default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// Validate checks if the circuit breaker configuration is valid.
func (c CircuitBreakerConfig) Validate() error {
	if c.MaxFailures < 1 {
		return fmt.Errorf("max_failures must be at least 1, got %d", c.MaxFailures)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	if c.HalfOpenMaxRequests < 1 {
		return fmt.Errorf("half_open_max_requests must be at least 1, got %d", c.HalfOpenMaxRequests)
	}
	return nil
}

// PushCircuitBreaker stops calling a failing push provider until it has had time to recover.
type PushCircuitBreaker struct {
	config           CircuitBreakerConfig
	state            CircuitState
	failures         int
	lastFailureTime  time.Time
	lastStateChange  time.Time
	halfOpenRequests int
	mu               sync.RWMutex
	metrics          *metrics.NotificationMetrics
	providerName     string
	log              logger.Logger
}

// NewPushCircuitBreaker creates a breaker for providerName. An invalid config is
// logged but kept, so tests can use short timeouts.
func NewPushCircuitBreaker(config CircuitBreakerConfig, m *metrics.NotificationMetrics, providerName string) *PushCircuitBreaker {
	log := GetLogger().With(logger.String("provider", providerName))
	if err := config.Validate(); err != nil {
		log.Warn("circuit breaker config validation failed",
			logger.Error(err),
			logger.String("action", "proceeding with provided config"))
	}

	cb := &PushCircuitBreaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: time.Now(),
		metrics:         m,
		providerName:    providerName,
		log:             log,
	}
	if cb.metrics != nil {
		cb.metrics.UpdateCircuitBreakerState(providerName, int(StateClosed))
		cb.metrics.UpdateHealthStatus(providerName, true)
	}
	return cb
}

// Call executes fn if the circuit breaker allows it and records the result.
func (cb *PushCircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		state, failures := cb.State(), cb.Failures()
		return fmt.Errorf("circuit breaker rejected request (%v, %d consecutive failures): %w",
			state, failures, err)
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

func (cb *PushCircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastStateChange) >= cb.config.Timeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenRequests = 1 // this call is the first probe
			return nil
		}
		return ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.config.HalfOpenMaxRequests {
			return ErrTooManyRequests
		}
		cb.halfOpenRequests++
		return nil
	default:
		return ErrCircuitBreakerOpen
	}
}

func (cb *PushCircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.onSuccess()
		return
	}
	// Caller cancellation is not a provider failure.
	if errors.Is(err, context.Canceled) {
		return
	}
	cb.onFailure()
}

func (cb *PushCircuitBreaker) onSuccess() {
	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	if cb.metrics != nil {
		cb.metrics.UpdateHealthStatus(cb.providerName, true)
	}
	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
}

func (cb *PushCircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()
	if cb.metrics != nil {
		cb.metrics.IncrementConsecutiveFailures(cb.providerName)
	}

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	case StateOpen:
	}
	if cb.state == StateOpen && cb.metrics != nil {
		cb.metrics.UpdateHealthStatus(cb.providerName, false)
	}
}

// setState must be called with cb.mu held.
func (cb *PushCircuitBreaker) setState(newState CircuitState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = time.Now()

	if cb.metrics != nil {
		cb.metrics.UpdateCircuitBreakerState(cb.providerName, int(newState))
	}
	cb.log.Info("circuit breaker state transition",
		logger.String("old_state", oldState.String()),
		logger.String("new_state", newState.String()),
		logger.Int("consecutive_failures", cb.failures))
}

// State returns the current state of the circuit breaker.
func (cb *PushCircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current number of consecutive failures.
func (cb *PushCircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Reset manually resets the circuit breaker to closed state.
func (cb *PushCircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	cb.halfOpenRequests = 0
	cb.setState(StateClosed)
	if cb.metrics != nil {
		cb.metrics.UpdateHealthStatus(cb.providerName, true)
	}
}

// IsHealthy returns true if the circuit breaker is closed.
func (cb *PushCircuitBreaker) IsHealthy() bool {
	return cb.State() == StateClosed
}
