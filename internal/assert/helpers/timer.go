package helpers

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/kode4food/signwiz/internal/poller"
)

type (
	// TimerConstructor hands out FakeTimers and lets tests wait for them
	TimerConstructor struct {
		created chan *FakeTimer
		count   atomic.Int32
	}

	// FakeTimer is a poller.Timer that only fires when told to
	FakeTimer struct {
		ch      chan time.Time
		resets  chan time.Duration
		stops   chan struct{}
		Delay   time.Duration
		stopped atomic.Bool
	}
)

// TimerWaitTimeout bounds every wait on a fake timer
const TimerWaitTimeout = time.Second

// NewTimerConstructor creates a constructor that records every timer built
func NewTimerConstructor() *TimerConstructor {
	return &TimerConstructor{
		created: make(chan *FakeTimer, 16),
	}
}

// NewTimer satisfies poller.TimerConstructor
func (c *TimerConstructor) NewTimer(delay time.Duration) poller.Timer {
	timer := &FakeTimer{
		ch:     make(chan time.Time, 1),
		resets: make(chan time.Duration, 16),
		stops:  make(chan struct{}, 16),
		Delay:  delay,
	}
	c.count.Add(1)
	select {
	case c.created <- timer:
	default:
	}
	return timer
}

// WaitTimer blocks until the next timer is constructed
func (c *TimerConstructor) WaitTimer(t *testing.T) *FakeTimer {
	t.Helper()
	select {
	case timer := <-c.created:
		return timer
	case <-time.After(TimerWaitTimeout):
		t.Fatal("poll timer was not created")
		return nil
	}
}

// Count returns the number of timers constructed so far
func (c *TimerConstructor) Count() int {
	return int(c.count.Load())
}

// Channel satisfies poller.Timer
func (t *FakeTimer) Channel() <-chan time.Time {
	return t.ch
}

// Reset satisfies poller.Timer
func (t *FakeTimer) Reset(delay time.Duration) bool {
	t.stopped.Store(false)
	drainTimeChan(t.ch)
	select {
	case t.resets <- delay:
	default:
	}
	return true
}

// Stop satisfies poller.Timer
func (t *FakeTimer) Stop() bool {
	alreadyStopped := t.stopped.Swap(true)
	drainTimeChan(t.ch)
	select {
	case t.stops <- struct{}{}:
	default:
	}
	return !alreadyStopped
}

// Fire delivers a tick unless the timer is stopped
func (t *FakeTimer) Fire() {
	if t.stopped.Load() {
		return
	}
	select {
	case t.ch <- time.Now():
	default:
	}
}

// WaitReset blocks until the timer is re-armed and returns the delay
func (t *FakeTimer) WaitReset(test *testing.T) time.Duration {
	test.Helper()
	select {
	case delay := <-t.resets:
		return delay
	case <-time.After(TimerWaitTimeout):
		test.Fatal("poll timer reset not observed")
		return 0
	}
}

// WaitStop blocks until the timer is stopped
func (t *FakeTimer) WaitStop(test *testing.T) {
	test.Helper()
	select {
	case <-t.stops:
	case <-time.After(TimerWaitTimeout):
		test.Fatal("poll timer stop not observed")
	}
}

// IsStopped reports whether Stop was the last call made on the timer
func (t *FakeTimer) IsStopped() bool {
	return t.stopped.Load()
}

func drainTimeChan(ch <-chan time.Time) {
	select {
	case <-ch:
	default:
	}
}
