package ds

import (
	"testing"
	"time"
)

func TestTimerPollExpiresAfterPeriod(t *testing.T) {
	tm := newTimer(10)
	tm.Init(10, 1)
	tm.Start()

	start := time.Now()
	if tm.poll(start) {
		t.Fatalf("poll() at t=0 reported expired")
	}
	if tm.poll(start.Add(5 * time.Millisecond)) {
		t.Fatalf("poll() at t=5ms reported expired for a 10ms period")
	}
	if !tm.poll(start.Add(10 * time.Millisecond)) {
		t.Fatalf("poll() at t=10ms did not report expired for a 10ms period")
	}
	if !tm.Expired() {
		t.Fatalf("Expired() = false after poll() returned true")
	}
}

func TestTimerResetClearsExpired(t *testing.T) {
	tm := newTimer(10)
	tm.Init(10, 1)
	tm.Start()
	start := time.Now()
	tm.poll(start.Add(20 * time.Millisecond))
	if !tm.Expired() {
		t.Fatalf("Expired() = false, want true before Reset")
	}
	tm.Reset()
	if tm.Expired() {
		t.Fatalf("Expired() = true after Reset")
	}
}

func TestTimerStopDisablesPolling(t *testing.T) {
	tm := newTimer(10)
	tm.Init(10, 1)
	tm.Start()
	tm.Stop()
	if tm.Enabled() {
		t.Fatalf("Enabled() = true after Stop()")
	}
	if tm.poll(time.Now().Add(time.Hour)) {
		t.Fatalf("poll() reported expired on a stopped timer")
	}
}

func TestTimerZeroPeriodNeverExpires(t *testing.T) {
	tm := newTimer(0)
	tm.Init(0, 1)
	tm.Start()
	if tm.poll(time.Now().Add(time.Hour)) {
		t.Fatalf("poll() reported expired for a zero-period timer")
	}
}

func TestWatchdogMs(t *testing.T) {
	tests := []struct {
		intervalMs int
		want       int
	}{
		{0, 1000},
		{-5, 1000},
		{20, 1000}, // 20*50 = 1000, equal to the cap
		{1, 50},
		{5, 250},
	}
	for _, tt := range tests {
		if got := watchdogMs(tt.intervalMs); got != tt.want {
			t.Errorf("watchdogMs(%d) = %d, want %d", tt.intervalMs, got, tt.want)
		}
	}
}
