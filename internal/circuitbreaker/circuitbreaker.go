// Package circuitbreaker gates gateway calls per provider. After a run
// of consecutive failures the provider's circuit opens and calls are
// refused locally until a cool-off window passes; a half-open probe
// phase then decides whether to close it again.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/yourorg/payment-core/internal/transaction"
)

// State is the state of one provider's circuit.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

const (
	defaultFailureThreshold = 5
	defaultOpenWindow       = 30 * time.Second
	defaultHalfOpenSuccesses = 2
)

type providerState struct {
	state         State
	failures      int // consecutive, while Closed
	probeSuccesses int // consecutive, while HalfOpen
	openUntil     time.Time
}

// Breaker tracks provider health in memory.
type Breaker struct {
	mu               sync.RWMutex
	providers        map[transaction.Provider]*providerState
	failureThreshold int
	openWindow       time.Duration
	halfOpenSuccesses int
}

// New creates a Breaker with default settings.
func New() *Breaker {
	return NewWithSettings(defaultFailureThreshold, defaultOpenWindow, defaultHalfOpenSuccesses)
}

// NewWithSettings creates a Breaker with custom thresholds.
func NewWithSettings(failureThreshold int, openWindow time.Duration, halfOpenSuccesses int) *Breaker {
	return &Breaker{
		providers:        make(map[transaction.Provider]*providerState),
		failureThreshold: failureThreshold,
		openWindow:       openWindow,
		halfOpenSuccesses: halfOpenSuccesses,
	}
}

func (b *Breaker) state(p transaction.Provider) *providerState {
	ps, ok := b.providers[p]
	if !ok {
		ps = &providerState{state: Closed}
		b.providers[p] = ps
	}
	return ps
}

// Allow reports whether calls to the provider are currently permitted.
// An expired open window transitions the circuit to half-open.
func (b *Breaker) Allow(p transaction.Provider) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.state(p)
	switch ps.state {
	case Open:
		if time.Now().After(ps.openUntil) {
			ps.state = HalfOpen
			ps.probeSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordFailure notes a failed call against the provider.
func (b *Breaker) RecordFailure(p transaction.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.state(p)
	switch ps.state {
	case Closed:
		ps.failures++
		if ps.failures >= b.failureThreshold {
			ps.state = Open
			ps.openUntil = time.Now().Add(b.openWindow)
		}
	case HalfOpen:
		// A failed probe re-opens immediately.
		ps.state = Open
		ps.openUntil = time.Now().Add(b.openWindow)
		ps.failures = 0
		ps.probeSuccesses = 0
	}
}

// RecordSuccess notes a successful call against the provider.
func (b *Breaker) RecordSuccess(p transaction.Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.state(p)
	switch ps.state {
	case Closed:
		ps.failures = 0
	case HalfOpen:
		ps.probeSuccesses++
		if ps.probeSuccesses >= b.halfOpenSuccesses {
			ps.state = Closed
			ps.failures = 0
			ps.probeSuccesses = 0
		}
	}
}

// CurrentState returns the provider's circuit state without triggering
// any transition.
func (b *Breaker) CurrentState(p transaction.Provider) State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ps, ok := b.providers[p]
	if !ok {
		return Closed
	}
	return ps.state
}
