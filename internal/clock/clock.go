// Package clock supplies the current time to commands.
//
// Production code injects Real(); tests inject Fake() and move time with
// Advance. Entry timestamps come only from a Clock, never from time.Now.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. Successive calls never go backwards.
type Clock interface {
	Now() time.Time
}

// Real returns a Clock backed by the system clock. If the wall clock is
// stepped backwards, Now keeps returning the latest time it has handed
// out until the wall clock catches up.
func Real() Clock { return &realClock{} }

type realClock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *realClock) Now() time.Time {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
