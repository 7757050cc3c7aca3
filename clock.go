package ebb

import "time"

// Clock reports time elapsed since some fixed start, in seconds.
type Clock interface {
	ElapsedSeconds() float32
}

type monotonicClock struct {
	start time.Time
}

// NewClock returns a Clock counting from the moment it is created. It uses
// the monotonic reading of time.Now, so wall clock changes do not affect it.
func NewClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) ElapsedSeconds() float32 {
	return float32(time.Since(c.start).Seconds())
}

// Clock returns the tree's clock.
func (t *Tree) Clock() Clock {
	return t.clock
}

// SetClock replaces the clock consulted by time-driven nodes such as
// tweens. A nil c restores a fresh monotonic clock.
func (t *Tree) SetClock(c Clock) {
	if c == nil {
		c = NewClock()
	}
	t.clock = c
}
