package clock

import (
	"testing"
	"time"
)

func TestRealNowAdvances(t *testing.T) {
	c := New()
	t1 := c.Now()
	time.Sleep(time.Millisecond)
	t2 := c.Now()
	if !t2.After(t1) {
		t.Errorf("expected Now() to advance, got %v then %v", t1, t2)
	}
}

func TestFakeNowHoldsUntilAdvanced(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	if !f.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", f.Now(), start)
	}

	f.Advance(time.Hour)
	want := start.Add(time.Hour)
	if !f.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", f.Now(), want)
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	f := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	ch := f.After(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("After channel fired before the clock advanced")
	default:
	}

	f.Advance(5 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("After channel did not fire once the clock reached its deadline")
	}
}

func TestFakeAfterFiresImmediatelyForPastDeadline(t *testing.T) {
	f := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ch := f.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFakeSleepAdvancesClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	f.Sleep(time.Minute)
	if !f.Now().Equal(start.Add(time.Minute)) {
		t.Errorf("Now() = %v, want %v", f.Now(), start.Add(time.Minute))
	}
}
