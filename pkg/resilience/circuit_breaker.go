package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/richxcame/transitflow/pkg/config"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when the breaker refuses a request because it is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Operation represents a call wrapped by the circuit breaker.
type Operation func(ctx context.Context) (interface{}, error)

// Settings defines runtime options for the circuit breaker.
type Settings struct {
	Name             string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32

	// IsSuccessful classifies errors that must not count against the
	// upstream, such as "not found". Nil treats every error as a failure.
	IsSuccessful func(err error) bool
}

// SettingsFromConfig builds breaker settings for one upstream from the shared config.
func SettingsFromConfig(name string, cfg config.CircuitBreakerConfig) Settings {
	s := cfg.SettingsFor(name)
	return Settings{
		Name:             name,
		Interval:         time.Duration(s.IntervalSeconds) * time.Second,
		Timeout:          time.Duration(s.TimeoutSeconds) * time.Second,
		FailureThreshold: uint32(s.FailureThreshold),
		SuccessThreshold: uint32(s.SuccessThreshold),
	}
}

// CircuitBreaker wraps gobreaker with logging and prometheus metrics.
type CircuitBreaker struct {
	name         string
	breaker      *gobreaker.CircuitBreaker
	isSuccessful func(err error) bool
}

// NewCircuitBreaker constructs a breaker.
func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	name := nextBreakerName(settings.Name)

	readyToTrip := func(counts gobreaker.Counts) bool {
		threshold := settings.FailureThreshold
		if threshold == 0 {
			threshold = 5
		}
		return counts.ConsecutiveFailures >= threshold
	}

	breakerSettings := gobreaker.Settings{
		Name:         name,
		Timeout:      settings.Timeout,
		Interval:     settings.Interval,
		ReadyToTrip:  readyToTrip,
		IsSuccessful: settings.IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			recordBreakerStateChange(name, from, to)
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	if settings.SuccessThreshold > 0 {
		breakerSettings.MaxRequests = settings.SuccessThreshold
	}

	recordBreakerState(name, gobreaker.StateClosed)

	return &CircuitBreaker{
		name:         name,
		breaker:      gobreaker.NewCircuitBreaker(breakerSettings),
		isSuccessful: settings.IsSuccessful,
	}
}

// Name returns the breaker name used in logs and metrics.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// Execute runs the supplied operation through the breaker. A nil breaker
// runs the operation directly.
func (c *CircuitBreaker) Execute(ctx context.Context, operation Operation) (interface{}, error) {
	if operation == nil {
		return nil, errors.New("operation cannot be nil")
	}

	if c == nil || c.breaker == nil {
		return operation(ctx)
	}

	recordBreakerRequest(c.name)
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return operation(ctx)
	})
	if err == nil {
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		recordBreakerRejection(c.name)
		return nil, ErrCircuitOpen
	}

	// classified errors still reach the caller but are not failures
	if c.isSuccessful == nil || !c.isSuccessful(err) {
		recordBreakerFailure(c.name)
	}
	return nil, err
}

// Allow reports whether the breaker would allow a request without executing it.
func (c *CircuitBreaker) Allow() bool {
	if c == nil || c.breaker == nil {
		return true
	}
	return c.breaker.State() != gobreaker.StateOpen
}

// State returns the current breaker state as a string.
func (c *CircuitBreaker) State() string {
	if c == nil || c.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return c.breaker.State().String()
}
