package pkg

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t0 := time.Unix(1000, 0)
	cl := NewClock(time.Minute, 5*time.Second)

	if got := cl.Remaining(t0.Add(time.Hour)); got != time.Minute {
		t.Fatalf("remaining before start = %v, want 1m", got)
	}
	cl.Start(t0)
	cl.Start(t0.Add(10 * time.Second))
	if got := cl.Remaining(t0.Add(20 * time.Second)); got != 40*time.Second {
		t.Fatalf("remaining while running = %v, want 40s", got)
	}
	cl.Tick(t0.Add(20 * time.Second))
	if got := cl.Remaining(t0.Add(time.Hour)); got != 45*time.Second {
		t.Fatalf("remaining after tick = %v, want 45s", got)
	}

	cl.Start(t0.Add(time.Hour))
	cl.Pause(t0.Add(time.Hour + 15*time.Second))
	if got := cl.Remaining(t0.Add(2 * time.Hour)); got != 30*time.Second {
		t.Fatalf("remaining after pause = %v, want 30s", got)
	}
	if cl.Expired(t0.Add(2 * time.Hour)) {
		t.Fatal("paused clock expired")
	}

	cl.Start(t0.Add(3 * time.Hour))
	if !cl.Expired(t0.Add(3*time.Hour + 31*time.Second)) {
		t.Fatal("clock did not expire")
	}
	if got := cl.Remaining(t0.Add(4 * time.Hour)); got != 0 {
		t.Fatalf("remaining = %v, want 0", got)
	}

	cl.Reset()
	if got := cl.Remaining(t0.Add(5 * time.Hour)); got != time.Minute {
		t.Fatalf("remaining after reset = %v, want 1m", got)
	}
}

func TestClock_Untimed(t *testing.T) {
	cl := NewClock(0, 0)
	t0 := time.Unix(0, 0)
	cl.Start(t0)
	if cl.Expired(t0.Add(24 * time.Hour)) {
		t.Fatal("an untimed clock expired")
	}
}
