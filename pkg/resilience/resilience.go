// Package resilience provides retry and circuit breaking for remote calls.
package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/logflow/bpmnctx/pkg/config"
)

// ErrCircuitOpen is returned while a breaker rejects calls.
var ErrCircuitOpen = stderrors.New("circuit open")

// Policy controls Retry.
type Policy struct {
	Attempts int           // total tries, at least 1
	Delay    time.Duration // first backoff, doubled after each failure
	MaxDelay time.Duration // backoff cap, zero means uncapped
}

// PolicyFrom builds a policy from store retry settings.
func PolicyFrom(cfg config.RetryConfig) Policy {
	return Policy{
		Attempts: cfg.Attempts,
		Delay:    cfg.Delay,
		MaxDelay: cfg.MaxDelay,
	}
}

// Retry calls fn until it succeeds, the attempts run out, retryable rejects
// the error, or ctx is done. The last error is returned.
func Retry(ctx context.Context, p Policy, retryable func(error) bool, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= attempts || ctx.Err() != nil {
			return err
		}
		if retryable != nil && !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Rejecting requests
	CircuitHalfOpen                     // Testing if the backend recovered
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker stops calling a failing backend for a cooldown period after
// a run of consecutive failures. A single call is let through once the
// cooldown passes; its outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	state    CircuitState
	failures int
	tripTime time.Time
	probing  bool

	now func() time.Time

	// Callbacks
	OnTrip  func(failures int)
	OnReset func()
}

// NewCircuitBreaker creates a breaker that opens after threshold consecutive
// failures. A threshold of zero or less never opens.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     CircuitClosed,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.tripTime) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.probing = true
		return nil

	case CircuitHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	}
	return nil
}

// Record reports the outcome of an allowed call.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err == nil {
		if cb.state != CircuitClosed && cb.OnReset != nil {
			go cb.OnReset()
		}
		cb.state = CircuitClosed
		cb.failures = 0
		return
	}

	cb.failures++
	if cb.threshold <= 0 {
		return
	}
	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		cb.state = CircuitOpen
		cb.tripTime = cb.now()
		if cb.OnTrip != nil {
			go cb.OnTrip(cb.failures)
		}
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
