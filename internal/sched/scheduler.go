// Package sched runs dashboard timers against simulation time.
package sched

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/qos-dashboard/timectrl"
)

// EventScheduler schedules callbacks to run at specific simulation times
// based on a SimClock implementation. Every panel timer, repeating or
// one-shot, is an event on one of these.
//
// The runtime loop advances the time controller and calls RunDue after each
// advance. All callbacks therefore run on the goroutine that calls RunDue.
type EventScheduler interface {
	// Schedule registers a callback f to run at simulation time 'at'.
	// It returns an opaque event ID that can be used to cancel the event.
	Schedule(at time.Time, f func()) (id string)

	// Cancel attempts to cancel a previously scheduled event.
	// It is a no-op if the ID is unknown or the event already ran.
	Cancel(id string)

	// Now returns the current simulation time.
	Now() time.Time

	// RunDue executes all events whose scheduled time is <= Now().
	// Already-run events never run again.
	RunDue()
}

type scheduledEvent struct {
	id        string
	when      time.Time
	f         func()
	cancelled bool
}

// eventQueue keeps events ordered by time, FIFO among equal times.
type eventQueue struct {
	counter uint64
	prefix  string
	events  []*scheduledEvent
	index   map[string]*scheduledEvent
}

func newEventQueue(prefix string) eventQueue {
	return eventQueue{prefix: prefix, index: make(map[string]*scheduledEvent)}
}

func (q *eventQueue) add(at time.Time, f func()) string {
	q.counter++
	ev := &scheduledEvent{
		id:   fmt.Sprintf("%s-%d", q.prefix, q.counter),
		when: at,
		f:    f,
	}

	// Insert after every event at or before 'at' so equal times keep
	// scheduling order.
	idx := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].when.After(ev.when)
	})
	q.events = append(q.events, nil)
	copy(q.events[idx+1:], q.events[idx:])
	q.events[idx] = ev

	q.index[ev.id] = ev
	return ev.id
}

func (q *eventQueue) cancel(id string) {
	ev, ok := q.index[id]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(q.index, id)
	// Removal from q.events is lazy; pop skips cancelled events.
}

// pop removes and returns the earliest live event due at or before now.
func (q *eventQueue) pop(now time.Time) *scheduledEvent {
	for len(q.events) > 0 {
		ev := q.events[0]
		if ev.cancelled {
			q.events = q.events[1:]
			continue
		}
		if ev.when.After(now) {
			return nil
		}
		q.events = q.events[1:]
		delete(q.index, ev.id)
		return ev
	}
	return nil
}

// nextAt reports the time of the earliest live event.
func (q *eventQueue) nextAt() (time.Time, bool) {
	for _, ev := range q.events {
		if !ev.cancelled {
			return ev.when, true
		}
	}
	return time.Time{}, false
}

func (q *eventQueue) pending() int {
	return len(q.index)
}

// eventScheduler is the EventScheduler backed by a SimClock.
type eventScheduler struct {
	clock timectrl.SimClock

	mu    sync.Mutex
	queue eventQueue
}

// NewEventScheduler creates a new event scheduler backed by the given SimClock:
// the TimeController in normal runs, a fake clock in tests.
func NewEventScheduler(clock timectrl.SimClock) EventScheduler {
	return &eventScheduler{
		clock: clock,
		queue: newEventQueue("ev"),
	}
}

func (s *eventScheduler) Schedule(at time.Time, f func()) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.add(at, f)
}

func (s *eventScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.cancel(id)
}

func (s *eventScheduler) Now() time.Time {
	return s.clock.Now()
}

// Pending returns the number of scheduled, not yet run, events.
func (s *eventScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.pending()
}

func (s *eventScheduler) RunDue() {
	for {
		s.mu.Lock()
		ev := s.queue.pop(s.clock.Now())
		s.mu.Unlock()
		if ev == nil {
			return
		}

		// Execute callback outside the lock so callbacks can reschedule.
		if ev.f != nil {
			ev.f()
		}
	}
}
