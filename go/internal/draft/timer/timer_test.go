package timer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type recorder struct {
	ticks  chan int
	grace  chan struct{}
	expire chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		ticks:  make(chan int, 64),
		grace:  make(chan struct{}, 8),
		expire: make(chan struct{}, 8),
	}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnTick:             func(s int) { r.ticks <- s },
		OnGracePeriodStart: func() { r.grace <- struct{}{} },
		OnExpire:           func() { r.expire <- struct{}{} },
	}
}

func waitTick(t *testing.T, r *recorder, want int) {
	t.Helper()
	select {
	case got := <-r.ticks:
		if got != want {
			t.Fatalf("tick %d, want %d", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for tick %d", want)
	}
}

func waitSignal(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func assertQuiet(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("unexpected %s", what)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownRunsToGraceAndExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newRecorder()
	c := New(clock, 3, 5, r.callbacks())
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTick(t, r, 2)
	clock.Advance(time.Second)
	waitTick(t, r, 1)
	clock.Advance(time.Second)
	waitTick(t, r, 0)
	waitSignal(t, r.grace, "grace period start")

	if !c.InGracePeriod() {
		t.Fatal("expected grace period")
	}
	if c.Expired() {
		t.Fatal("expired before grace elapsed")
	}

	// The grace window is a fixed 5s, not merely zero seconds left.
	clock.Advance(4 * time.Second)
	assertQuiet(t, r.expire, "expire before grace elapsed")
	clock.Advance(time.Second)
	waitSignal(t, r.expire, "expire")

	if !c.Expired() {
		t.Fatal("expected expired latch set")
	}
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newRecorder()
	c := New(clock, 1, 1, r.callbacks())
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTick(t, r, 0)
	waitSignal(t, r.grace, "grace period start")
	clock.Advance(time.Second)
	waitSignal(t, r.expire, "expire")

	// Ticks keep arriving but the latch holds.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
	}
	assertQuiet(t, r.expire, "second expire")
}

func TestCountdownReset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newRecorder()
	c := New(clock, 2, 1, r.callbacks())
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTick(t, r, 1)
	clock.Advance(time.Second)
	waitTick(t, r, 0)
	waitSignal(t, r.grace, "grace period start")

	// A committed pick resets the clock before the grace window elapses.
	c.Reset()
	if c.Remaining() != 2 || c.InGracePeriod() || c.Expired() {
		t.Fatalf("reset left remaining=%d grace=%v expired=%v", c.Remaining(), c.InGracePeriod(), c.Expired())
	}
	clock.Advance(time.Second)
	assertQuiet(t, r.expire, "expire from cancelled grace timer")
	waitTick(t, r, 1)

	// The next cycle can still expire normally.
	clock.Advance(time.Second)
	waitTick(t, r, 0)
	waitSignal(t, r.grace, "second grace period start")
	clock.Advance(time.Second)
	waitSignal(t, r.expire, "expire after reset")
}

func TestCountdownPauseResume(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newRecorder()
	c := New(clock, 10, 5, r.callbacks())
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTick(t, r, 9)

	c.Pause()
	if !c.Paused() {
		t.Fatal("expected paused")
	}
	clock.Advance(3 * time.Second)
	select {
	case s := <-r.ticks:
		t.Fatalf("tick %d while paused", s)
	case <-time.After(50 * time.Millisecond):
	}
	if c.Remaining() != 9 {
		t.Fatalf("pause should freeze the clock, remaining=%d", c.Remaining())
	}

	c.Resume()
	clock.Advance(time.Second)
	waitTick(t, r, 8)
}

func TestCountdownPauseDuringGrace(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newRecorder()
	c := New(clock, 1, 3, r.callbacks())
	c.Start()
	defer c.Stop()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTick(t, r, 0)
	waitSignal(t, r.grace, "grace period start")

	c.Pause()
	clock.Advance(10 * time.Second)
	assertQuiet(t, r.expire, "expire while paused")

	// Resume re-arms the full grace window.
	c.Resume()
	clock.Advance(2 * time.Second)
	assertQuiet(t, r.expire, "expire before re-armed grace elapsed")
	clock.Advance(time.Second)
	waitSignal(t, r.expire, "expire after resume")
}

func TestCountdownStopCancelsGrace(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newRecorder()
	c := New(clock, 1, 5, r.callbacks())
	c.Start()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitTick(t, r, 0)
	waitSignal(t, r.grace, "grace period start")

	c.Stop()
	clock.Advance(10 * time.Second)
	assertQuiet(t, r.expire, "expire after stop")
}

func TestUrgencyBands(t *testing.T) {
	tests := []struct {
		seconds int
		want    Urgency
	}{
		{30, UrgencyNormal},
		{11, UrgencyNormal},
		{10, UrgencyWarning},
		{5, UrgencyWarning},
		{4, UrgencyCritical},
		{0, UrgencyCritical},
	}
	for _, tt := range tests {
		if got := UrgencyFor(tt.seconds); got != tt.want {
			t.Errorf("UrgencyFor(%d) = %s, want %s", tt.seconds, got, tt.want)
		}
	}
}
