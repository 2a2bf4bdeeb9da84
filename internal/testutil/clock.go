package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant returned by a StepClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns Epoch advanced by one more Step than the previous
// call, so events stamped with it have distinct, predictable timestamps and
// golden output stays byte-identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	Step  time.Duration
	calls int64
}

// NewStepClock creates a clock advancing one second per call.
func NewStepClock() *StepClock {
	return &StepClock{Step: time.Second}
}

// Now returns the next instant.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return t
}

// Reset rewinds the clock so the next call returns Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
