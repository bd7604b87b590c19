package sched

import (
	"slices"
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// manualClock only moves when the test says so.
type manualClock struct {
	mu  sync.RWMutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *manualClock) After(time.Duration) <-chan time.Time {
	return make(chan time.Time, 1)
}

func (c *manualClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestScheduler() (*manualClock, EventScheduler) {
	clock := &manualClock{now: epoch}
	return clock, NewEventScheduler(clock)
}

func TestRunDueHonoursSimulationTime(t *testing.T) {
	clock, s := newTestScheduler()

	var log []string
	for _, ev := range []struct {
		name string
		at   time.Duration
	}{
		{"status", 5 * time.Second},
		{"animate", 50 * time.Millisecond},
		{"update", 2 * time.Second},
		{"spawn", 600 * time.Millisecond},
	} {
		name := ev.name
		s.Schedule(epoch.Add(ev.at), func() { log = append(log, name) })
	}

	steps := []struct {
		to   time.Duration
		want []string
	}{
		{0, nil},
		{100 * time.Millisecond, []string{"animate"}},
		{2 * time.Second, []string{"animate", "spawn", "update"}},
		{10 * time.Second, []string{"animate", "spawn", "update", "status"}},
		{20 * time.Second, []string{"animate", "spawn", "update", "status"}},
	}
	for _, st := range steps {
		clock.set(epoch.Add(st.to))
		s.RunDue()
		if !slices.Equal(log, st.want) {
			t.Fatalf("at +%v ran %v, want %v", st.to, log, st.want)
		}
	}
}

func TestRunDueKeepsScheduleOrderForTies(t *testing.T) {
	clock, s := newTestScheduler()

	var got []string
	at := epoch.Add(4 * time.Second)
	for _, panel := range []string{"flows", "decisions", "topology", "chat"} {
		panel := panel
		s.Schedule(at, func() { got = append(got, panel) })
	}
	clock.set(at)
	s.RunDue()

	if want := []string{"flows", "decisions", "topology", "chat"}; !slices.Equal(got, want) {
		t.Fatalf("tie order = %v, want %v", got, want)
	}
}

func TestScheduleInThePastRunsOnNextRunDue(t *testing.T) {
	_, s := newTestScheduler()

	ran := false
	s.Schedule(epoch.Add(-time.Minute), func() { ran = true })
	s.RunDue()
	if !ran {
		t.Fatalf("overdue event did not run")
	}
}

func TestCancelledEventNeverRuns(t *testing.T) {
	clock, s := newTestScheduler()

	ran := 0
	reply := s.Schedule(epoch.Add(1500*time.Millisecond), func() { ran++ })
	s.Cancel(reply)
	s.Cancel(reply)
	s.Cancel("ev-does-not-exist")

	clock.set(epoch.Add(time.Hour))
	s.RunDue()
	if ran != 0 {
		t.Fatalf("cancelled event ran %d times", ran)
	}
	if p := s.(*eventScheduler).Pending(); p != 0 {
		t.Fatalf("pending = %d after cancel, want 0", p)
	}
}

func TestCallbackMayRescheduleItself(t *testing.T) {
	clock, s := newTestScheduler()

	var fires []time.Time
	var tick func()
	tick = func() {
		fires = append(fires, s.Now())
		if len(fires) < 3 {
			s.Schedule(s.Now().Add(time.Second), tick)
		}
	}
	s.Schedule(epoch.Add(time.Second), tick)

	for i := 1; i <= 5; i++ {
		clock.set(epoch.Add(time.Duration(i) * time.Second))
		s.RunDue()
	}
	if len(fires) != 3 {
		t.Fatalf("self-rescheduling callback fired %d times, want 3", len(fires))
	}
	if !fires[2].Equal(epoch.Add(3 * time.Second)) {
		t.Fatalf("third fire at %v, want +3s", fires[2].Sub(epoch))
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	_, s := newTestScheduler()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.Schedule(epoch, func() {})
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty id %q", id)
		}
		seen[id] = true
	}
}

func TestNowFollowsClock(t *testing.T) {
	clock, s := newTestScheduler()
	later := epoch.Add(90 * time.Minute)
	clock.set(later)
	if !s.Now().Equal(later) {
		t.Fatalf("Now() = %v, want %v", s.Now(), later)
	}
}
