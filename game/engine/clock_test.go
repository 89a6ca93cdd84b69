package engine

import (
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "00:00"},
		{7, "00:07"},
		{59, "00:59"},
		{60, "01:00"},
		{605, "10:05"},
		{3725, "62:05"},
		{6000, "100:00"},
		{-3, "00:00"},
	}

	for _, tt := range tests {
		if got := FormatElapsed(tt.seconds); got != tt.expected {
			t.Errorf("FormatElapsed(%d) = %s, want %s", tt.seconds, got, tt.expected)
		}
	}
}

func TestClock_TicksAndStops(t *testing.T) {
	sched := NewManualScheduler()
	clock := NewClock(sched, time.Second)

	ticks := 0
	var fire func(epoch uint64)
	fire = func(epoch uint64) {
		if !clock.Current(epoch) {
			return
		}
		ticks++
		clock.Arm(fire)
	}

	clock.Start(fire)
	if !clock.Running() {
		t.Fatal("Expected clock running after Start")
	}

	sched.Advance(3500 * time.Millisecond)
	if ticks != 3 {
		t.Errorf("Expected 3 ticks, got %d", ticks)
	}

	clock.Stop()
	sched.Advance(5 * time.Second)
	if ticks != 3 {
		t.Errorf("Expected no ticks after Stop, got %d", ticks)
	}
	if clock.Running() {
		t.Error("Expected clock stopped")
	}
}

func TestClock_StaleEpoch(t *testing.T) {
	clock := NewClock(NewManualScheduler(), 0)
	clock.Start(func(uint64) {})
	stale := clock.epoch

	clock.Start(func(uint64) {})
	if clock.Current(stale) {
		t.Error("Expected a restarted clock to invalidate older ticks")
	}
	if !clock.Current(clock.epoch) {
		t.Error("Expected the current epoch to be live")
	}
	if clock.interval != DefaultTickInterval {
		t.Errorf("Expected default interval, got %v", clock.interval)
	}
}
