// Package breaker implements a closed/open/half-open circuit breaker
// guarding the discovery worker's outbound HTTP calls.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is one of Closed, Open, HalfOpen.
type State int

// Breaker states.
const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Execute when the breaker is open and the call is
// rejected without being attempted.
var ErrOpen = errors.New("circuit breaker is open")

// Config parameterizes a Breaker. Matches the discovery worker's policy:
// failure_threshold=3, recovery_timeout=5s.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	OnStateChange    func(from, to State)
}

// DefaultConfig returns the discovery worker's breaker policy.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          5 * time.Second,
	}
}

// Breaker is a simple closed/open/half-open circuit breaker.
type Breaker struct {
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	config          Config
}

// New constructs a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{config: cfg, state: Closed}
}

// Execute runs fn if the breaker permits it, recording the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}
	err := fn(ctx)
	b.afterCall(err)
	return err
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.lastFailureTime) >= b.config.Timeout {
			b.transitionTo(HalfOpen)
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.recordFailure()
		return
	}
	b.recordSuccess()
}

func (b *Breaker) recordFailure() {
	b.failureCount++
	b.lastFailureTime = time.Now()
	b.successCount = 0

	switch b.state {
	case HalfOpen:
		b.transitionTo(Open)
	case Closed:
		if b.failureCount >= b.config.FailureThreshold {
			b.transitionTo(Open)
		}
	}
}

func (b *Breaker) recordSuccess() {
	switch b.state {
	case HalfOpen:
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			b.transitionTo(Closed)
		}
	case Closed:
		b.failureCount = 0
	}
}

func (b *Breaker) transitionTo(to State) {
	from := b.state
	b.state = to
	b.failureCount = 0
	b.successCount = 0
	if to == Closed {
		b.lastFailureTime = time.Time{}
	}
	if b.config.OnStateChange != nil && from != to {
		b.config.OnStateChange(from, to)
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
