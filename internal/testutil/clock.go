// Package testutil provides deterministic helpers for engine tests.
package testutil

import (
	"sync"
	"time"
)

// Clock is a settable wall clock for tests.
//
// The engine takes every reference instant from its caller, so tests drive
// time by advancing a Clock and passing Now() explicitly. This keeps the
// same scenario reproducible run over run.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at the given instant.
func NewClock(at time.Time) *Clock {
	return &Clock{now: at}
}

// Now returns the current frozen instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward (or backward, with a negative duration)
// and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set pins the clock to a specific instant.
func (c *Clock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}
