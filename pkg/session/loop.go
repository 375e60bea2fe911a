package session

import (
	"sync"
	"time"

	"github.com/teslashibe/go-teslacam/internal/log"
)

// Ticker is driven by a Loop once per interval.
type Ticker interface {
	Tick(dt time.Duration)
}

// Loop schedules ticks on a time.Ticker. Each tick runs to completion before
// the next one is taken. Stop only clears the schedule and never waits, so
// it is safe to call from inside a tick or while holding the session lock.
type Loop struct {
	target   Ticker
	interval time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
	ticks   uint64
}

// NewLoop creates a stopped loop. A non-positive interval means
// DefaultTickInterval.
func NewLoop(target Ticker, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Loop{target: target, interval: interval}
}

// Start schedules ticks. Calling Start on a running loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.stop, l.done)
}

// Stop cancels scheduling. It is idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	close(l.stop)
}

// Wait blocks until the last started run has exited. It must not be called
// while holding a lock the target's Tick takes.
func (l *Loop) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether ticks are scheduled.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Ticks returns the number of ticks run since creation.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Interval returns the tick period.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	log.Component("loop").Debug("tick loop started", "hz", 1/l.interval.Seconds())
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			// A stop that raced with this tick wins.
			select {
			case <-stop:
				return
			default:
			}
			dt := now.Sub(last)
			last = now
			l.target.Tick(dt)

			l.mu.Lock()
			l.ticks++
			l.mu.Unlock()
		}
	}
}
