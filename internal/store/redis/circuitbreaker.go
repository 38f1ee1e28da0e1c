package redis

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting writes.
var ErrCircuitOpen = errors.New("redis writes suspended: circuit open")

// State of the write-path circuit breaker. The numeric values feed the
// breaker-state gauge directly.
type State int

const (
	StateClosed   State = iota // writes pass through
	StateOpen                  // Redis unreachable, writes rejected
	StateHalfOpen              // probing with a single write
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < StateClosed || s > StateHalfOpen {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreaker guards the prediction publish path against a Redis outage.
// After maxFailures consecutive write errors the circuit opens and publishes
// fail fast with ErrCircuitOpen (the buffered writer parks them locally).
// Once resetTimeout has elapsed a single probe write decides between closing
// the circuit and reopening it.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	consecFails int
	lastFailAt  time.Time

	maxFailures  int
	resetTimeout time.Duration

	// OnStateChange, when set, observes every transition.
	OnStateChange func(from, to State)
}

// NewCircuitBreaker builds a closed breaker tripping after maxFailures
// consecutive errors and probing again after resetTimeout.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{maxFailures: maxFailures, resetTimeout: resetTimeout}
}

// Execute runs one write through the breaker.
func (cb *CircuitBreaker) Execute(write func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := write()
	cb.record(err)
	return err
}

// CurrentState reports the breaker state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// allow decides whether the next write may proceed, moving an expired open
// circuit to half-open for its probe.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	if time.Since(cb.lastFailAt) <= cb.resetTimeout {
		return ErrCircuitOpen
	}
	cb.transition(StateHalfOpen)
	return nil
}

// record folds one write outcome into the breaker state.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		cb.consecFails = 0
		return
	}

	cb.consecFails++
	cb.lastFailAt = time.Now()
	if cb.state == StateHalfOpen || cb.consecFails >= cb.maxFailures {
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if to == StateClosed {
		cb.consecFails = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
