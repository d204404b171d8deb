package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	c := New()
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestMockClock_AddAndSet(t *testing.T) {
	start := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	c := NewMock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", c.Now(), start)
	}

	c.Add(5 * time.Minute)
	if got := c.Since(start); got != 5*time.Minute {
		t.Errorf("Since() = %v, want 5m", got)
	}

	later := start.Add(24 * time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", c.Now(), later)
	}
}
