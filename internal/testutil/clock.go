package testutil

import "sync"

// ManualClock is a Clock Oracle for tests that starts at a fixed unix time
// and advances by a fixed step on every reading.
//
// The ledger reads the oracle once per transaction, so the n-th transaction
// observes start + (n-1)*step. A step of 0 freezes time.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu   sync.Mutex
	now  int64
	step int64
}

// NewManualClock creates a clock whose first reading is start.
func NewManualClock(start, step int64) *ManualClock {
	return &ManualClock{now: start, step: step}
}

// Now returns the current time and advances the clock by step.
// Implements ledger.ClockOracle.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now += c.step
	return t
}

// Peek returns the time the next reading will return, without advancing.
func (c *ManualClock) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t. Setting a time earlier than the last reading is
// allowed, which lets tests model a non-monotonic oracle.
func (c *ManualClock) Set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
