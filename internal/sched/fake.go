package sched

import (
	"sync"
	"time"
)

// FakeScheduler is an EventScheduler with its own notion of simulation time
// that tests advance explicitly.
//
// Unlike the clock-backed scheduler, AdvanceTo steps time through each due
// event in order, so a callback observes Now() equal to its own fire time.
type FakeScheduler struct {
	mu    sync.Mutex
	now   time.Time
	queue eventQueue
}

// NewFakeScheduler creates a new fake scheduler starting at the given time.
func NewFakeScheduler(start time.Time) *FakeScheduler {
	return &FakeScheduler{
		now:   start,
		queue: newEventQueue("fake-ev"),
	}
}

// Now returns the current fake simulation time.
func (s *FakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule registers a callback to run at the specified simulation time.
func (s *FakeScheduler) Schedule(at time.Time, f func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.add(at, f)
}

// Cancel attempts to cancel a previously scheduled event.
func (s *FakeScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.cancel(id)
}

// Pending returns the number of scheduled, not yet run, events.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.pending()
}

// RunDue executes all events whose scheduled time is <= now.
func (s *FakeScheduler) RunDue() {
	for {
		s.mu.Lock()
		ev := s.queue.pop(s.now)
		s.mu.Unlock()
		if ev == nil {
			return
		}
		if ev.f != nil {
			ev.f()
		}
	}
}

// AdvanceTo moves fake time forward to t, running every event due on the
// way. Time is kept monotonic (does not go backwards).
func (s *FakeScheduler) AdvanceTo(t time.Time) {
	for {
		s.mu.Lock()
		if t.Before(s.now) {
			s.mu.Unlock()
			return
		}
		next, ok := s.queue.nextAt()
		if !ok || next.After(t) {
			s.now = t
			s.mu.Unlock()
			s.RunDue()
			return
		}
		if next.After(s.now) {
			s.now = next
		}
		ev := s.queue.pop(s.now)
		s.mu.Unlock()

		if ev != nil && ev.f != nil {
			ev.f()
		}
	}
}

// Advance moves fake time forward by d.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.AdvanceTo(s.Now().Add(d))
}
