// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package state

import (
	"sync/atomic"
)

// InFlightCounter counts launched-but-not-yet-gathered units of work. It is
// safe for concurrent use: worker goroutines release pool slots while the
// scattering goroutine acquires them.
type InFlightCounter struct {
	v atomic.Int64
}

// Increment unconditionally adds one and reports whether the counter was
// previously zero.
func (c *InFlightCounter) Increment() bool {
	return c.v.Add(1) == 1
}

// IncrementIfUnder adds one only if the result would not exceed limit. A
// negative limit means unlimited.
func (c *InFlightCounter) IncrementIfUnder(limit int) bool {
	if limit < 0 {
		c.v.Add(1)
		return true
	}
	// Tentatively increment and back out if that went over the limit. Retry
	// if another goroutine made room between the two operations.
	for c.v.Add(1) > int64(limit) {
		if c.v.Add(-1) >= int64(limit) {
			return false
		}
	}
	return true
}

// Decrement subtracts one and reports whether the counter reached zero.
func (c *InFlightCounter) Decrement() bool {
	n := c.v.Add(-1)
	if n < 0 {
		panic("there were no tasks in flight")
	}
	return n == 0
}

func (c *InFlightCounter) GreaterThanZero() bool {
	return c.v.Load() > 0
}

func (c *InFlightCounter) Load() int64 {
	return c.v.Load()
}
