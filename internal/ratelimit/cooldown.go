// Package ratelimit provides the cooldown gates used to rate-limit
// side-effect triggers (snapshot, audio, tilt).
package ratelimit

import (
	"sync"
	"time"
)

// Cooldown is a minimum elapsed-time gate. It fires at most once per
// interval; attempts inside the window are rejected. The zero value is not
// usable; use New.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// New creates a cooldown that allows an immediate first fire.
func New(interval time.Duration) *Cooldown {
	return &Cooldown{interval: interval}
}

// TryFire reports whether the gate is open at now and, if so, consumes it.
// Concurrent callers race on a last-check-wins basis, which is acceptable
// because cooldown windows dwarf the check/update gap.
func (c *Cooldown) TryFire(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.last.IsZero() && now.Sub(c.last) < c.interval {
		return false
	}
	c.last = now
	return true
}

// Last returns the time of the most recent successful fire.
func (c *Cooldown) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
