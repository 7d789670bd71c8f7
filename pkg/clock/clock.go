// Package clock provides the coarse time base shared by all modules.
package clock

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// Time is a point on the time base, in milliseconds since start.
type Time uint32

// Units and sentinels.
const (
	Millisecond Time = 1
	Second      Time = 1000 * Millisecond

	// Never is a deadline that never elapses.
	Never Time = math.MaxUint32
)

// Add returns t+d, saturating at Never.
func (t Time) Add(d Time) Time {
	if d >= Never-t {
		return Never
	}
	return t + d
}

// Duration converts to time.Duration.
func (t Time) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

// Source provides current time.
type Source interface {
	Now() Time
}

// Elapsed reports whether deadline is strictly in the past.
func Elapsed(src Source, deadline Time) bool {
	return src.Now() > deadline
}

// Clock is a monotonic counter advanced by a periodic tick.
// Tick is the only writer and may run on its own goroutine; readers
// only load the counter.
type Clock struct {
	// Increment is added on every Tick.
	Increment Time

	now atomic.Uint32
}

// DefaultIncrement matches a 10ms hardware tick.
const DefaultIncrement = 10 * Millisecond

// New creates a Clock with the given increment.
func New(increment Time) *Clock {
	if increment == 0 {
		increment = DefaultIncrement
	}
	return &Clock{Increment: increment}
}

// Now implements Source.
func (c *Clock) Now() Time {
	return Time(c.now.Load())
}

// Tick advances the counter by Increment. It stops one short of Never
// so a Never deadline stays pending forever.
func (c *Clock) Tick() Time {
	now := c.Now().Add(c.Increment)
	if now == Never {
		now--
	}
	c.now.Store(uint32(now))
	return now
}

// Set forces the counter, used by tests and simulations.
func (c *Clock) Set(t Time) {
	if t == Never {
		t--
	}
	c.now.Store(uint32(t))
}

// Run implements Runnable and ticks in real time.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.Increment.Duration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}
