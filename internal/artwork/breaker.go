package artwork

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker state machine position.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// circuitBreaker tracks consecutive failures for a single provider and
// temporarily removes it from rotation. Closed passes all attempts through;
// after threshold consecutive failures the circuit opens and rejects
// attempts without a network call until the cooldown elapses, at which point
// exactly one probe is allowed (half-open). A successful probe closes the
// circuit; a failed probe re-opens it with a fresh cooldown.
type circuitBreaker struct {
	mu            sync.Mutex
	threshold     int
	cooldown      time.Duration
	state         breakerState
	failures      int
	nextAttemptAt time.Time
	probing       bool

	now func() time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     stateClosed,
		now:       time.Now,
	}
}

// Allow reports whether an attempt may proceed. While open it rejects with
// ErrProviderUnavailable until the cooldown elapses, then admits a single
// probe attempt.
func (cb *circuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return nil
	case stateOpen:
		if cb.now().Before(cb.nextAttemptAt) {
			return ErrProviderUnavailable
		}
		cb.state = stateHalfOpen
		cb.probing = true
		return nil
	case stateHalfOpen:
		if !cb.probing {
			cb.probing = true
			return nil
		}
		return ErrProviderUnavailable
	default:
		return ErrProviderUnavailable
	}
}

// RecordSuccess resets the failure streak and closes the circuit.
func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = stateClosed
	cb.probing = false
}

// RecordFailure increments the failure streak. A failed half-open probe
// re-opens the circuit immediately; in closed state the circuit opens once
// the streak reaches the threshold.
func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	if cb.state == stateHalfOpen {
		cb.open()
		return
	}
	if cb.failures >= cb.threshold {
		cb.open()
	}
}

// ForceOpen opens the circuit immediately, bypassing the threshold.
// Administrative override.
func (cb *circuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.open()
}

// ForceClose closes the circuit and clears the failure streak.
// Administrative override.
func (cb *circuitBreaker) ForceClose() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = stateClosed
	cb.probing = false
}

// open transitions to the open state with a fresh cooldown.
// Caller must hold cb.mu.
func (cb *circuitBreaker) open() {
	cb.state = stateOpen
	cb.probing = false
	cb.nextAttemptAt = cb.now().Add(cb.cooldown)
}

// State returns the current state machine position.
func (cb *circuitBreaker) State() breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// ConsecutiveFailures returns the current failure streak.
func (cb *circuitBreaker) ConsecutiveFailures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// TemporarilyDisabled reports whether the provider should be skipped without
// an attempt. An open circuit whose cooldown has elapsed is not considered
// disabled, so the probe attempt can go through.
func (cb *circuitBreaker) TemporarilyDisabled() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state == stateOpen && cb.now().Before(cb.nextAttemptAt)
}

// NextAttemptAt returns the instant the next probe is allowed while open.
func (cb *circuitBreaker) NextAttemptAt() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.nextAttemptAt
}
