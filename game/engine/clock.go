package engine

import (
	"fmt"
	"time"
)

// Clock is a suspendable one-second ticker. It is not safe for concurrent use:
// the owning Engine calls it with its lock held, and each tick callback must check
// Current before touching state, because a stopped clock may still have a callback
// in flight on another goroutine.
type Clock struct {
	sched    Scheduler
	interval time.Duration
	timer    Timer
	epoch    uint64
	running  bool
}

// NewClock creates a stopped clock
func NewClock(sched Scheduler, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Clock{sched: sched, interval: interval}
}

// Start (re)starts the clock; fire is called with the epoch the tick belongs to.
func (c *Clock) Start(fire func(epoch uint64)) {
	c.Stop()
	c.running = true
	c.Arm(fire)
}

// Arm schedules the next tick of the current epoch
func (c *Clock) Arm(fire func(epoch uint64)) {
	if !c.running {
		return
	}
	epoch := c.epoch
	c.timer = c.sched.AfterFunc(c.interval, func() { fire(epoch) })
}

// Stop cancels the pending tick and invalidates callbacks already in flight
func (c *Clock) Stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.running = false
	c.epoch++
}

// Current reports whether a tick of the given epoch is still live
func (c *Clock) Current(epoch uint64) bool {
	return c.running && epoch == c.epoch
}

// Running reports whether the clock is ticking
func (c *Clock) Running() bool {
	return c.running
}

// FormatElapsed renders seconds as MM:SS. Minutes are not wrapped into hours.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
