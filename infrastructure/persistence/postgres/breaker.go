package postgres

import (
	"errors"
	"time"

	apperrors "data-migration/pkg/errors"
	"data-migration/pkg/observability"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings configures the circuit breaker around source reads.
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before letting a probe
	// through.
	Timeout time.Duration
}

// Breaker stops hammering an unavailable source database. Not found results
// are answers, not failures.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a new circuit breaker and reports its state to
// collector, which may be nil.
func NewBreaker(settings BreakerSettings, collector *observability.Collector, logger *zap.Logger) *Breaker {
	failures := settings.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	collector.SetCircuitOpen(settings.Name, false)

	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			collector.SetCircuitOpen(name, to == gobreaker.StateOpen)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || apperrors.IsNotFound(err)
		},
	})}
}

// Execute runs fn through the breaker. A rejected call fails with a
// retryable UNAVAILABLE error.
func (b *Breaker) Execute(fn func() error) error {
	if b == nil {
		return fn()
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewUnavailableError("source database").
			WithCause(err).
			WithDetail("breaker", b.cb.Name())
	}
	return err
}

// State returns the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
