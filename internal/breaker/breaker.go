// Package breaker implements the circuit breaker protecting the primary
// price source. It is a two-state machine: Closed (attempts allowed) and
// Open (attempts skipped until a cooldown deadline passes). Only actual
// failed attempts advance the failure streak; skipped attempts do not.
package breaker

import (
	"sync"
	"time"
)

// State is the breaker's position.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

const (
	// DefaultFailureThreshold is the consecutive-failure count that opens
	// the breaker.
	DefaultFailureThreshold = 3
	// DefaultCooldown is how long the breaker stays open.
	DefaultCooldown = 60 * time.Second
)

// Breaker tracks consecutive failures of a single source. Safe for
// concurrent use.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldown         time.Duration

	consecutiveFailures int
	disabledUntil       time.Time
}

// New creates a breaker. Non-positive arguments fall back to the defaults.
func New(failureThreshold int, cooldown time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// Allow reports whether an attempt may be made at the given instant. The
// breaker closes automatically once the cooldown deadline passes.
func (b *Breaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disabledUntil.IsZero() {
		return true
	}
	if now.Before(b.disabledUntil) {
		return false
	}
	// Cooldown elapsed: close. The streak survives until a success, so a
	// failed retry reopens immediately.
	b.disabledUntil = time.Time{}
	return true
}

// Failure records a failed attempt. Crossing the threshold opens the
// breaker until now+cooldown.
func (b *Breaker) Failure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.failureThreshold {
		b.disabledUntil = now.Add(b.cooldown)
	}
}

// Success records a successful attempt, resetting the streak and closing
// the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.disabledUntil = time.Time{}
}

// State returns the breaker's position at the given instant.
func (b *Breaker) State(now time.Time) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.disabledUntil.IsZero() && now.Before(b.disabledUntil) {
		return StateOpen
	}
	return StateClosed
}

// Status is a point-in-time view of the breaker, for introspection
// endpoints.
type Status struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	DisabledUntil       *time.Time `json:"disabled_until,omitempty"`
}

// Status snapshots the breaker's counters.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Status{ConsecutiveFailures: b.consecutiveFailures}
	if !b.disabledUntil.IsZero() {
		until := b.disabledUntil
		s.DisabledUntil = &until
	}
	return s
}
