// Package timer implements the per-pick countdown clock: a tick-driven
// counter with a fixed terminal grace period before an autopick fires.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Urgency bands drive UI treatment only, never behavior.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"   // more than 10s remaining
	UrgencyWarning  Urgency = "warning"  // 5-10s remaining
	UrgencyCritical Urgency = "critical" // under 5s
)

// Callbacks are invoked from the timer's goroutines. They must not block.
type Callbacks struct {
	OnTick             func(secondsRemaining int)
	OnGracePeriodStart func()
	OnExpire           func()
}

// Countdown counts a pick clock down once per second. When it reaches
// zero it enters a grace period of fixed length, independent of the main
// countdown, during which a manual pick is still honored. If the grace
// period elapses OnExpire fires exactly once; a latch prevents a second
// fire until Reset.
type Countdown struct {
	clock        clockwork.Clock
	pickSeconds  int
	graceSeconds int
	cb           Callbacks

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu           sync.Mutex
	started      bool
	stopped      bool
	remaining    int
	paused       bool
	inGrace      bool
	expired      bool
	gracePending bool // grace was interrupted by Pause and re-arms on Resume
	graceTimer   clockwork.Timer
}

// New builds a countdown. Nothing runs until Start.
func New(clock clockwork.Clock, pickSeconds, graceSeconds int, cb Callbacks) *Countdown {
	return &Countdown{
		clock:        clock,
		pickSeconds:  pickSeconds,
		graceSeconds: graceSeconds,
		cb:           cb,
		stopCh:       make(chan struct{}),
		remaining:    pickSeconds,
	}
}

// Start launches the tick loop. Calling Start twice is a no-op.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()
}

// Stop cancels the tick loop and any pending grace timeout. The
// countdown cannot be restarted after Stop; a stopped timer never fires
// a stale autopick.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	started := c.started
	c.stopGraceLocked()
	c.mu.Unlock()

	close(c.stopCh)
	if started {
		c.wg.Wait()
	}
}

// Pause freezes the countdown without resetting it. Pausing inside the
// grace period holds the grace window open until Resume.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.stopped {
		return
	}
	c.paused = true
	if c.inGrace && c.graceTimer != nil {
		c.stopGraceLocked()
		c.gracePending = true
	}
}

// Resume unfreezes a paused countdown. Resuming during the grace period
// re-arms the full grace window.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused || c.stopped {
		return
	}
	c.paused = false
	if c.gracePending {
		c.gracePending = false
		c.armGraceLocked()
	}
}

// Reset restores the initial seconds and clears the grace and expire
// guards, starting the next participant's clock.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopGraceLocked()
	c.gracePending = false
	c.remaining = c.pickSeconds
	c.inGrace = false
	c.expired = false
}

// Remaining returns the seconds left on the main countdown.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// InGracePeriod reports whether the main countdown has hit zero and the
// terminal grace window is open.
func (c *Countdown) InGracePeriod() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inGrace && !c.expired
}

// Expired reports whether the grace period elapsed without a pick.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Paused reports whether the countdown is frozen.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// UrgencyLevel maps the remaining seconds onto a display band.
func (c *Countdown) UrgencyLevel() Urgency {
	return UrgencyFor(c.Remaining())
}

// UrgencyFor maps a seconds-remaining value onto a display band.
func UrgencyFor(secondsRemaining int) Urgency {
	switch {
	case secondsRemaining > 10:
		return UrgencyNormal
	case secondsRemaining >= 5:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

// armGraceLocked schedules the one-shot grace timeout. Caller holds mu.
func (c *Countdown) armGraceLocked() {
	c.graceTimer = c.clock.AfterFunc(time.Duration(c.graceSeconds)*time.Second, c.onGraceExpire)
}

// stopGraceLocked cancels a pending grace timeout. Caller holds mu.
func (c *Countdown) stopGraceLocked() {
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

// onGraceExpire fires when the grace window elapses. The expired latch
// guarantees at most one OnExpire per Reset cycle even if a stale timer
// fires late.
func (c *Countdown) onGraceExpire() {
	c.mu.Lock()
	if c.stopped || c.expired || c.paused || !c.inGrace {
		c.mu.Unlock()
		return
	}
	c.expired = true
	c.graceTimer = nil
	c.mu.Unlock()

	if c.cb.OnExpire != nil {
		c.cb.OnExpire()
	}
}

func (c *Countdown) run() {
	defer c.wg.Done()

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.Chan():
			c.mu.Lock()
			if c.paused || c.inGrace || c.expired || c.remaining <= 0 {
				c.mu.Unlock()
				continue
			}
			c.remaining--
			remaining := c.remaining
			enterGrace := remaining == 0
			if enterGrace {
				c.inGrace = true
				c.armGraceLocked()
			}
			c.mu.Unlock()

			if c.cb.OnTick != nil {
				c.cb.OnTick(remaining)
			}
			if enterGrace && c.cb.OnGracePeriodStart != nil {
				c.cb.OnGracePeriodStart()
			}
		}
	}
}
