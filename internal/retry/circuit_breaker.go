package retry

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute when the breaker is open.
var ErrCircuitOpen = errors.New("retry: circuit breaker is open")

// BreakerState mirrors the classic closed/open/half-open circuit breaker
// state machine, adapted from the teacher's sliding-window breaker. Used to
// shield the DRM license endpoints and the remote CDM proxies (spec.md
// §4.5) from hammering a backend that is already failing.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type breakerEvent struct {
	at      time.Time
	success bool
}

// CircuitBreaker implements a sliding-window breaker: it trips open after
// `threshold` failures within `window` (given at least `minAttempts`
// samples), stays open for `resetTimeout`, then goes half-open: requests
// are let through, three successes close it again, and a failure reopens it.
type CircuitBreaker struct {
	mu sync.Mutex

	name   string
	state  BreakerState
	opened time.Time

	events []breakerEvent
	window time.Duration

	threshold        int
	minAttempts      int
	resetTimeout     time.Duration
	successesNeeded  int
	halfOpenSuccess  int

	onStateChange func(name string, from, to BreakerState)
}

// NewCircuitBreaker builds a breaker. Zero values fall back to sane defaults.
func NewCircuitBreaker(name string, threshold, minAttempts int, window, resetTimeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if minAttempts <= 0 {
		minAttempts = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:            name,
		state:           StateClosed,
		threshold:       threshold,
		minAttempts:     minAttempts,
		window:          window,
		resetTimeout:    resetTimeout,
		successesNeeded: 3,
	}
}

// OnStateChange registers a callback invoked whenever the breaker flips
// state.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to BreakerState)) {
	cb.mu.Lock()
	cb.onStateChange = fn
	cb.mu.Unlock()
}

// Allow reports whether a request may proceed, transitioning Open->HalfOpen
// once resetTimeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.prune(time.Now())

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.opened) >= cb.resetTimeout {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	default: // half-open: allow a single probe at a time is not enforced here;
		return true // callers are expected to be a single in-flight request per breaker.
	}
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}
	err := fn()
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	cb.events = append(cb.events, breakerEvent{at: now, success: false})
	cb.prune(now)

	if cb.state == StateHalfOpen {
		cb.transition(StateOpen)
		cb.opened = now
		return
	}
	if cb.state == StateClosed && len(cb.events) >= cb.minAttempts {
		failures := 0
		for _, e := range cb.events {
			if !e.success {
				failures++
			}
		}
		if failures >= cb.threshold {
			cb.transition(StateOpen)
			cb.opened = now
		}
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	cb.events = append(cb.events, breakerEvent{at: now, success: true})
	cb.prune(now)

	if cb.state == StateHalfOpen {
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.successesNeeded {
			cb.halfOpenSuccess = 0
			cb.events = nil
			cb.transition(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.window)
	i := 0
	for ; i < len(cb.events); i++ {
		if cb.events[i].at.After(cutoff) {
			break
		}
	}
	cb.events = cb.events[i:]
}

func (cb *CircuitBreaker) transition(to BreakerState) {
	from := cb.state
	cb.state = to
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
