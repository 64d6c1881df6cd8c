// Package delivery owns the retry, circuit-breaker and HTTP push logic
// for placing archive records with the downstream system.
package delivery

import (
	"sync"
	"time"

	"github.com/cnyeig/hydocpusher/internal/metrics"
	"github.com/cnyeig/hydocpusher/internal/pusher"
)

// BreakerState is the circuit state for one downstream endpoint.
type BreakerState int

// Circuit states.
const (
	StateClosed BreakerState = iota
	StateHalfOpen
	StateOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Breaker is the process-wide circuit breaker shared by all workers
// delivering to one endpoint. All transitions happen under one mutex;
// it is passed by reference into the delivery engine rather than hidden
// in a global so the sharing contract stays visible and testable.
type Breaker struct {
	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenProbes      int

	threshold    int
	openDuration time.Duration
	clock        pusher.Clock
}

// NewBreaker creates a closed Breaker. State is not persisted across
// restarts; a fresh process always starts closed.
func NewBreaker(threshold int, openDuration time.Duration, clock pusher.Clock) *Breaker {
	return &Breaker{
		threshold:    threshold,
		openDuration: openDuration,
		clock:        clock,
	}
}

// Allow decides whether a call may go out. While the circuit is open and
// the open window has not elapsed it returns CircuitOpenError without
// any network activity. Once the window elapses the circuit moves to
// half-open and exactly one probe is granted at a time.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		remaining := b.openDuration - b.clock.Now().Sub(b.openedAt)
		if remaining > 0 {
			return &pusher.CircuitOpenError{RetryAfter: remaining.Round(time.Second).String()}
		}
		b.setState(StateHalfOpen)
		b.halfOpenProbes = 1
		return nil
	default: // StateHalfOpen
		if b.halfOpenProbes >= 1 {
			return &pusher.CircuitOpenError{RetryAfter: "probe in flight"}
		}
		b.halfOpenProbes = 1
		return nil
	}
}

// Success records a successful call, closing the circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.halfOpenProbes = 0
	b.setState(StateClosed)
}

// ReleaseProbe frees the half-open probe slot without recording an
// outcome. Called when a probe ends in a request defect or application
// rejection: those say nothing about downstream health, so the circuit
// must neither close nor reopen, and the next caller gets the probe.
func (b *Breaker) ReleaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.halfOpenProbes = 0
	}
}

// Failure records a transient downstream failure. A half-open probe
// failure reopens immediately; in the closed state the circuit opens
// once consecutive failures reach the threshold. Client errors never
// reach here; they indicate a request defect, not unavailability.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	switch b.state {
	case StateHalfOpen:
		b.halfOpenProbes = 0
		b.openedAt = b.clock.Now()
		b.setState(StateOpen)
	case StateClosed:
		if b.consecutiveFailures >= b.threshold {
			b.openedAt = b.clock.Now()
			b.setState(StateOpen)
		}
	}
}

// State returns the current circuit state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// setState must be called with the mutex held.
func (b *Breaker) setState(s BreakerState) {
	b.state = s
	metrics.SetBreakerState(float64(s))
}
