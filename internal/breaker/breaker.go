// Package breaker guards calls into failing collaborators with named
// circuit breaker instances.
package breaker

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when the breaker rejects a call without invoking the
// wrapped operation. Callers branch on it with errors.Is.
var ErrOpen = errors.New("circuit breaker open")

// State mirrors the breaker's three-state gate.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Metrics is an observability snapshot of a breaker instance.
type Metrics struct {
	Name                string    `json:"name"`
	State               State     `json:"state"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	TotalFailures       uint32    `json:"total_failures"`
	TotalSuccesses      uint32    `json:"total_successes"`
	LastStateChange     time.Time `json:"last_state_change"`
}

// StateChangeFunc is notified on every state transition.
type StateChangeFunc func(name string, to State)

// Breaker wraps a fallible operation with failure counting and a
// closed/open/half-open gate. State is shared by all callers of the same
// instance; instances are constructed and injected, never global.
type Breaker struct {
	name            string
	cb              *gobreaker.CircuitBreaker
	logger          *log.Logger
	lastStateChange time.Time
}

// New creates a breaker that opens after threshold consecutive failures
// and allows a single trial call once timeout has elapsed.
func New(name string, threshold uint32, timeout time.Duration, logger *log.Logger, onChange StateChangeFunc) *Breaker {
	if logger == nil {
		logger = log.Default()
	}
	if threshold == 0 {
		threshold = 1
	}
	b := &Breaker{name: name, logger: logger, lastStateChange: time.Now()}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.lastStateChange = time.Now()
			b.logger.Printf("breaker %s: %s -> %s", name, from, to)
			if onChange != nil {
				onChange(name, fromGobreaker(to))
			}
		},
	})
	return b
}

// Execute invokes op unless the breaker is open. Failures increment the
// count and are returned unchanged; an open breaker fails fast with ErrOpen.
func (b *Breaker) Execute(op func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(op)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrOpen, b.name)
	}
	return result, err
}

// Do runs an operation with no result value.
func (b *Breaker) Do(op func() error) error {
	_, err := b.Execute(func() (interface{}, error) {
		return nil, op()
	})
	return err
}

// Name returns the breaker's instance name.
func (b *Breaker) Name() string { return b.name }

// State returns the current gate state. No side effects.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

// Metrics returns an observability snapshot. No side effects.
func (b *Breaker) Metrics() Metrics {
	counts := b.cb.Counts()
	return Metrics{
		Name:                b.name,
		State:               b.State(),
		ConsecutiveFailures: counts.ConsecutiveFailures,
		TotalFailures:       counts.TotalFailures,
		TotalSuccesses:      counts.TotalSuccesses,
		LastStateChange:     b.lastStateChange,
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
