package pkg

import (
	"fmt"
	"sync"
	"time"
)

// Clock accounts one color's thinking time. It only counts while running.
type Clock struct {
	Duration  time.Duration
	Increment time.Duration

	mu      sync.Mutex
	spent   time.Duration
	started time.Time
	running bool
}

func NewClock(duration, increment time.Duration) *Clock {
	return &Clock{Duration: duration, Increment: increment}
}

func (cl *Clock) String() string {
	r := cl.Remaining(time.Now())
	return fmt.Sprintf("%d:%02d", int(r.Minutes()), int(r.Seconds())%60)
}

// Start resumes the clock at now. Starting a running clock does nothing.
func (cl *Clock) Start(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.running {
		return
	}
	cl.running = true
	cl.started = now
}

// Pause stops the clock at now.
func (cl *Clock) Pause(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.pause(now)
}

func (cl *Clock) pause(now time.Time) {
	if !cl.running {
		return
	}
	cl.running = false
	cl.spent += now.Sub(cl.started)
}

// Tick ends a turn: the clock pauses and earns its increment.
func (cl *Clock) Tick(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.pause(now)
	cl.spent -= cl.Increment
}

// Remaining is the time left at now, never negative.
func (cl *Clock) Remaining(now time.Time) time.Duration {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	spent := cl.spent
	if cl.running {
		spent += now.Sub(cl.started)
	}
	if r := cl.Duration - spent; r > 0 {
		return r
	}
	return 0
}

func (cl *Clock) Expired(now time.Time) bool {
	return cl.Duration > 0 && cl.Remaining(now) == 0
}

func (cl *Clock) Reset() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.spent = 0
	cl.running = false
}
