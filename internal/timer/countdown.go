// Package timer provides the two independent countdowns driving an interview:
// the session-wide clock and the per-question clock.
package timer

import (
	"sync"
	"time"
)

// DefaultInterval is the production tick rate. Tests inject shorter intervals.
const DefaultInterval = time.Second

// Countdown decrements once per interval until it reaches zero or is stopped.
// OnTick fires after every decrement; OnExpire fires exactly once when the
// counter hits zero. Both callbacks run on the countdown goroutine, so
// receivers must do their own locking and liveness checks.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	paused    bool

	interval time.Duration
	onTick   func(remaining int)
	onExpire func()

	stopOnce sync.Once
	stopc    chan struct{}
}

// New creates a countdown seeded with the given number of seconds. It does
// not start ticking until Start is called.
func New(seconds int, interval time.Duration, onTick func(int), onExpire func()) *Countdown {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Countdown{
		remaining: seconds,
		interval:  interval,
		onTick:    onTick,
		onExpire:  onExpire,
		stopc:     make(chan struct{}),
	}
}

// Start launches the tick loop.
func (c *Countdown) Start() {
	go c.run()
}

func (c *Countdown) run() {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-c.stopc:
			return
		case <-t.C:
			c.mu.Lock()
			if c.paused {
				c.mu.Unlock()
				continue
			}
			c.remaining--
			rem := c.remaining
			c.mu.Unlock()

			if c.onTick != nil {
				c.onTick(rem)
			}
			if rem <= 0 {
				// Close stopc first so a re-entrant Stop from the
				// expiry callback is a no-op.
				c.stopOnce.Do(func() { close(c.stopc) })
				if c.onExpire != nil {
					c.onExpire()
				}
				return
			}
		}
	}
}

// Pause suspends decrements without cancelling the loop.
func (c *Countdown) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume re-enables decrements.
func (c *Countdown) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether the countdown is currently suspended.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stop cancels the countdown. Idempotent and safe to call from callbacks.
// A Stop racing the final tick does not suppress an expiry that is already
// being delivered; callers replacing a countdown must check in onExpire that
// the firing countdown is still the installed one.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stopc) })
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
