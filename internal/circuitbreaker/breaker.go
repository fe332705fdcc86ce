// Package circuitbreaker guards calls to shared backends using Sony's gobreaker
package circuitbreaker

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
)

// Config holds the configuration for a circuit breaker
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int
	// Timeout is how long the breaker stays open before going half-open
	Timeout time.Duration
	// MaxConcurrentRequests is the number of trial calls allowed while half-open
	MaxConcurrentRequests int
}

// DefaultConfig returns the configuration used for the replay backend
func DefaultConfig() Config {
	return Config{
		MaxFailures:           5,
		Timeout:               30 * time.Second,
		MaxConcurrentRequests: 1,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return errors.ConfigError(fmt.Sprintf("circuit breaker max failures must be positive, got %d", c.MaxFailures))
	}
	if c.Timeout <= 0 {
		return errors.ConfigError(fmt.Sprintf("circuit breaker timeout must be positive, got %v", c.Timeout))
	}
	if c.MaxConcurrentRequests <= 0 {
		return errors.ConfigError(fmt.Sprintf("circuit breaker max concurrent requests must be positive, got %d", c.MaxConcurrentRequests))
	}
	return nil
}

// State represents the current state of the circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker wraps a gobreaker.CircuitBreaker
type Breaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// New creates a breaker. Caller mistakes (validation, auth, parse errors)
// never count as failures.
func New(name string, config Config, logger logging.Logger) (*Breaker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrDefault(logger)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    time.Minute,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				logging.Field{Key: "breaker", Value: name},
				logging.Field{Key: "from", Value: from.String()},
				logging.Field{Key: "to", Value: to.String()},
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch errors.GetType(err) {
			case errors.ErrTypeValidation, errors.ErrTypeAuth, errors.ErrTypeParse:
				return true
			}
			return false
		},
	}

	return &Breaker{name: name, breaker: gobreaker.NewCircuitBreaker(settings)}, nil
}

// Execute runs fn unless the breaker is open
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.InternalError(fmt.Sprintf("circuit breaker '%s' is %s", b.name, b.State()), err)
	}
	return err
}

// IsRejection reports whether err came from an open breaker rather than the call
func IsRejection(err error) bool {
	return stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests)
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	switch b.breaker.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Name returns the breaker name
func (b *Breaker) Name() string {
	return b.name
}
