// Package media provides playback.Source implementations: decoded video files
// through OpenCV and still images for bench testing the rig.
package media

import (
	"sync"
	"time"
)

// Clock is a pausable media clock. While running it advances with wall time.
type Clock struct {
	mu      sync.Mutex
	now     func() time.Time
	base    float64 // media seconds at startedAt
	started time.Time
	running bool
}

// NewClock returns a stopped clock at 0. now defaults to time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Time returns the media time in seconds.
func (c *Clock) Time() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeLocked()
}

func (c *Clock) timeLocked() float64 {
	if !c.running {
		return c.base
	}
	return c.base + c.now().Sub(c.started).Seconds()
}

// Start runs the clock from its current position.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.started = c.now()
	c.running = true
}

// Stop freezes the clock.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = c.timeLocked()
	c.running = false
}

// Set moves the clock to t seconds, keeping its running state.
func (c *Clock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = t
	c.started = c.now()
}

// Running reports whether the clock advances.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
