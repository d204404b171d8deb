package advisor

import (
	"sync"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
)

// BreakerState is the state of a provider circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen skips the provider.
	BreakerOpen
	// BreakerHalfOpen lets a trial call through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a provider circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before a trial call.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	}
}

// breaker tracks consecutive failures of one provider.
type breaker struct {
	mu       sync.Mutex
	config   BreakerConfig
	clock    clock.Clock
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

func newBreaker(config BreakerConfig, clk clock.Clock) *breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	return &breaker{config: config, clock: clk}
}

// currentState must be called with the lock held.
func (b *breaker) currentState() BreakerState {
	if b.state == BreakerOpen && b.clock.Since(b.openedAt) >= b.config.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Allow reports whether a call may go through. In half-open state only one
// trial call is allowed at a time.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.trial {
			return false
		}
		b.trial = true
		return true
	default:
		return false
	}
}

func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.trial = false
}

// Release ends a trial call without counting it either way.
func (b *breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
}

func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentState() == BreakerHalfOpen {
		b.open()
		return
	}
	b.failures++
	if b.failures >= b.config.FailureThreshold {
		b.open()
	}
}

// open must be called with the lock held.
func (b *breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.clock.Now()
	b.failures = 0
	b.trial = false
}
