package sched

import (
	"sync"
	"time"
)

// Ticker is a repeating timer on an EventScheduler. Each firing re-arms the
// next one at a fixed rate from the previous deadline.
type Ticker struct {
	s        EventScheduler
	interval time.Duration
	f        func(time.Time)

	mu      sync.Mutex
	next    time.Time
	id      string
	stopped bool
	fires   uint64
}

// Every arms a repeating timer that calls f every interval of simulation
// time, first at Now()+interval. f receives the deadline it fired for.
func Every(s EventScheduler, interval time.Duration, f func(at time.Time)) *Ticker {
	if interval <= 0 {
		panic("sched: non-positive ticker interval")
	}
	t := &Ticker{s: s, interval: interval, f: f}
	t.mu.Lock()
	t.next = s.Now().Add(interval)
	t.armLocked()
	t.mu.Unlock()
	return t
}

func (t *Ticker) armLocked() {
	at := t.next
	t.id = t.s.Schedule(at, func() { t.fire(at) })
}

func (t *Ticker) fire(at time.Time) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.fires++
	t.next = at.Add(t.interval)
	t.armLocked()
	t.mu.Unlock()

	if t.f != nil {
		t.f(at)
	}
}

// Stop cancels the pending firing. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.s.Cancel(t.id)
}

// Interval returns the ticker period.
func (t *Ticker) Interval() time.Duration { return t.interval }

// Fires returns how many times the ticker has fired.
func (t *Ticker) Fires() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fires
}

// After arms a one-shot timer that calls f once d of simulation time has
// elapsed. The returned ID cancels it through s.Cancel.
func After(s EventScheduler, d time.Duration, f func(at time.Time)) string {
	at := s.Now().Add(d)
	return s.Schedule(at, func() { f(at) })
}

// Middleware wraps a single timer firing. Panels name their timers so
// middleware can attach metrics and tracing per (panel, timer).
type Middleware func(panel, timer string, fire func())

// Group tracks the timers owned by one panel so they can be torn down
// together.
type Group struct {
	s     EventScheduler
	panel string
	mw    []Middleware

	mu      sync.Mutex
	tickers []*Ticker
	oneShot map[string]struct{}
}

// NewGroup returns an empty timer group for panel on s.
func NewGroup(s EventScheduler, panel string, mw ...Middleware) *Group {
	return &Group{s: s, panel: panel, mw: mw, oneShot: make(map[string]struct{})}
}

func (g *Group) wrap(timer string, f func(at time.Time)) func(at time.Time) {
	return func(at time.Time) {
		fire := func() { f(at) }
		for i := len(g.mw) - 1; i >= 0; i-- {
			mw, next := g.mw[i], fire
			fire = func() { mw(g.panel, timer, next) }
		}
		fire()
	}
}

// Every arms a repeating timer owned by the group.
func (g *Group) Every(timer string, interval time.Duration, f func(at time.Time)) *Ticker {
	t := Every(g.s, interval, g.wrap(timer, f))
	g.mu.Lock()
	g.tickers = append(g.tickers, t)
	g.mu.Unlock()
	return t
}

// After arms a one-shot timer owned by the group. The group forgets the
// timer once it fires.
func (g *Group) After(timer string, d time.Duration, f func(at time.Time)) string {
	wrapped := g.wrap(timer, f)
	var id string
	g.mu.Lock()
	defer g.mu.Unlock()
	id = After(g.s, d, func(at time.Time) {
		g.mu.Lock()
		delete(g.oneShot, id)
		g.mu.Unlock()
		wrapped(at)
	})
	g.oneShot[id] = struct{}{}
	return id
}

// Pending returns the number of live timers in the group.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.oneShot)
	for _, t := range g.tickers {
		t.mu.Lock()
		if !t.stopped {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// Stop cancels every timer in the group.
func (g *Group) Stop() {
	g.mu.Lock()
	tickers := g.tickers
	ids := make([]string, 0, len(g.oneShot))
	for id := range g.oneShot {
		ids = append(ids, id)
	}
	g.tickers = nil
	g.oneShot = make(map[string]struct{})
	g.mu.Unlock()

	for _, t := range tickers {
		t.Stop()
	}
	for _, id := range ids {
		g.s.Cancel(id)
	}
}

// Panel returns the name the group was created for.
func (g *Group) Panel() string { return g.panel }

// Now returns the scheduler's simulation time.
func (g *Group) Now() time.Time { return g.s.Now() }
