package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe fake wall clock for tests.
//
// Every call to Now advances the clock by a fixed tick, so durations measured
// between two calls are reproducible and golden reports stay byte-identical.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	tick  time.Duration
	calls int64
}

// Epoch is the instant a DeterministicClock starts at.
var Epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewDeterministicClock creates a clock at Epoch that advances by tick per call.
// A zero tick means one millisecond.
func NewDeterministicClock(tick time.Duration) *DeterministicClock {
	if tick == 0 {
		tick = time.Millisecond
	}
	return &DeterministicClock{start: Epoch, tick: tick}
}

// Now returns the current instant and advances the clock.
//
// The first call returns Epoch.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.tick)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
