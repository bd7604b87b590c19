package sched

import (
	"testing"
	"time"
)

func TestFakeScheduler_AdvanceStepsThroughEventTimes(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewFakeScheduler(start)

	var seen []time.Time
	for i := 1; i <= 3; i++ {
		s.Schedule(start.Add(time.Duration(i)*time.Second), func() {
			seen = append(seen, s.Now())
		})
	}

	s.Advance(5 * time.Second)

	if len(seen) != 3 {
		t.Fatalf("expected 3 events executed, got %d", len(seen))
	}
	for i, got := range seen {
		want := start.Add(time.Duration(i+1) * time.Second)
		if !got.Equal(want) {
			t.Fatalf("event %d observed Now()=%v, want %v", i, got, want)
		}
	}
	if !s.Now().Equal(start.Add(5 * time.Second)) {
		t.Fatalf("Now() after advance = %v", s.Now())
	}
}

func TestFakeScheduler_TimeIsMonotonic(t *testing.T) {
	start := time.Unix(100, 0)
	s := NewFakeScheduler(start)

	s.AdvanceTo(start.Add(-time.Second))
	if !s.Now().Equal(start) {
		t.Fatalf("fake time went backwards: %v", s.Now())
	}
}

func TestEvery_FiresAtFixedRate(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewFakeScheduler(start)

	var fired []time.Time
	tk := Every(s, 2*time.Second, func(at time.Time) { fired = append(fired, at) })

	s.Advance(7 * time.Second)

	if len(fired) != 3 {
		t.Fatalf("fires = %d, want 3", len(fired))
	}
	for i, at := range fired {
		want := start.Add(time.Duration(2*(i+1)) * time.Second)
		if !at.Equal(want) {
			t.Fatalf("fire %d at %v, want %v", i, at, want)
		}
	}
	if tk.Fires() != 3 {
		t.Fatalf("Fires() = %d, want 3", tk.Fires())
	}
	if s.Pending() != 1 {
		t.Fatalf("pending events = %d, want the next re-armed firing only", s.Pending())
	}
}

func TestEvery_StopCancelsNextFiring(t *testing.T) {
	s := NewFakeScheduler(time.Unix(0, 0))

	var count int
	tk := Every(s, time.Second, func(time.Time) { count++ })
	s.Advance(time.Second)
	tk.Stop()
	tk.Stop()
	s.Advance(10 * time.Second)

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending events = %d after Stop, want 0", s.Pending())
	}
}

func TestEvery_StopFromInsideCallback(t *testing.T) {
	s := NewFakeScheduler(time.Unix(0, 0))

	var count int
	var tk *Ticker
	tk = Every(s, time.Second, func(time.Time) {
		count++
		if count == 2 {
			tk.Stop()
		}
	})
	s.Advance(10 * time.Second)

	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestEvery_PanicsOnNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for zero interval")
		}
	}()
	Every(NewFakeScheduler(time.Unix(0, 0)), 0, func(time.Time) {})
}

func TestAfter_OneShot(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewFakeScheduler(start)

	var at time.Time
	var count int
	After(s, 1500*time.Millisecond, func(t time.Time) {
		at = t
		count++
	})

	s.Advance(time.Second)
	if count != 0 {
		t.Fatalf("one-shot fired early")
	}
	s.Advance(5 * time.Second)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if !at.Equal(start.Add(1500 * time.Millisecond)) {
		t.Fatalf("fired for %v", at)
	}
}

func TestGroup_StopCancelsEverything(t *testing.T) {
	s := NewFakeScheduler(time.Unix(0, 0))
	g := NewGroup(s, "test")

	var ticks, shots int
	g.Every("tick", time.Second, func(time.Time) { ticks++ })
	g.After("late", 3*time.Second, func(time.Time) { shots++ })
	g.After("early", time.Second, func(time.Time) { shots++ })

	if g.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", g.Pending())
	}

	s.Advance(time.Second)
	if g.Pending() != 2 {
		t.Fatalf("Pending() after first one-shot = %d, want 2", g.Pending())
	}

	g.Stop()
	s.Advance(10 * time.Second)

	if ticks != 1 || shots != 1 {
		t.Fatalf("ticks=%d shots=%d, want 1 and 1", ticks, shots)
	}
	if g.Pending() != 0 || s.Pending() != 0 {
		t.Fatalf("timers left after Stop: group=%d scheduler=%d", g.Pending(), s.Pending())
	}
}

func TestGroup_MiddlewareWrapsInOrder(t *testing.T) {
	s := NewFakeScheduler(time.Unix(0, 0))

	var calls []string
	outer := func(panel, timer string, fire func()) {
		calls = append(calls, "outer:"+panel+"/"+timer)
		fire()
	}
	inner := func(panel, timer string, fire func()) {
		calls = append(calls, "inner")
		fire()
	}
	g := NewGroup(s, "flows", outer, inner)
	g.After("update", time.Second, func(time.Time) { calls = append(calls, "fire") })

	s.Advance(time.Second)

	want := []string{"outer:flows/update", "inner", "fire"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}
