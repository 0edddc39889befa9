// Package circuit provides a consecutive-failure circuit breaker for
// best-effort downstreams like the journal stream sink.
package circuit

import (
	"sync"
	"time"
)

// Breaker opens after a run of consecutive failures and stays open for a
// cooldown, during which callers should skip the downstream call entirely.
// After the cooldown the next Allow lets one probe through.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	failures  int
	open      bool
	openUntil time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithCooldown sets how long the circuit stays open.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// New constructs a closed Breaker. Defaults: 5 failures, one minute open.
func New(opts ...Option) *Breaker {
	b := &Breaker{threshold: 5, cooldown: time.Minute}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether the protected call should run. An open circuit
// whose cooldown has expired closes and allows a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if time.Now().After(b.openUntil) {
		b.open = false
		b.failures = 0
		return true
	}
	return false
}

// RecordSuccess closes the circuit and clears the failure run.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure extends the failure run, opening the circuit at the
// threshold. It reports whether the circuit is now open.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openUntil = time.Now().Add(b.cooldown)
	}
	return b.open
}

// IsOpen reports whether the circuit is currently open.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && !time.Now().After(b.openUntil)
}
