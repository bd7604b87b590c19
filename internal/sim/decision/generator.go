package decision

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/notify"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

// Panel is the name the decision feed reports under.
const Panel = "decisions"

// UpdateInterval is the period of the decision tick.
const UpdateInterval = 4 * time.Second

// Snapshot is an immutable view of the decision feed.
type Snapshot struct {
	Decisions []Decision `json:"decisions"`
	Accuracy  float64    `json:"accuracy"`
	Counts    KindCounts `json:"counts"`
	Tick      uint64     `json:"tick"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MetricsRecorder receives the feed length and model accuracy after every
// mutation.
type MetricsRecorder interface {
	SetDecisionCount(n int)
	SetModelAccuracy(v float64)
}

// Option customises Generator construction.
type Option func(*Generator)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithIDs overrides decision id generation.
func WithIDs(ids rng.IDFunc) Option {
	return func(g *Generator) {
		if ids != nil {
			g.ids = ids
		}
	}
}

// WithMiddleware wraps every timer firing.
func WithMiddleware(mw ...sched.Middleware) Option {
	return func(g *Generator) { g.mw = append(g.mw, mw...) }
}

// Generator owns the decision feed, the accuracy value and the tick timer.
type Generator struct {
	sched   sched.EventScheduler
	src     rng.Source
	ids     rng.IDFunc
	log     logging.Logger
	metrics MetricsRecorder
	mw      []sched.Middleware

	// pub is held from snapshot through Publish so observers see
	// snapshots in mutation order. Taken before mu.
	pub sync.Mutex

	mu        sync.RWMutex
	decisions []Decision
	accuracy  float64
	tick      uint64
	updatedAt time.Time
	timers    *sched.Group

	observers notify.Broadcaster[Snapshot]
}

// New constructs a stopped Generator.
func New(s sched.EventScheduler, src rng.Source, opts ...Option) *Generator {
	g := &Generator{
		sched:    s,
		src:      src,
		ids:      rng.Counter("decision"),
		log:      logging.Noop(),
		accuracy: InitialAccuracy,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logging.Panel(Panel))
	return g
}

// Start mounts the initial decisions, resets accuracy and arms the tick.
func (g *Generator) Start() {
	g.pub.Lock()
	defer g.pub.Unlock()
	g.mu.Lock()
	if g.timers != nil {
		g.mu.Unlock()
		return
	}
	now := g.sched.Now()
	g.decisions = Mount(g.src, g.ids, now)
	g.accuracy = InitialAccuracy
	g.tick = 0
	g.updatedAt = now
	g.timers = sched.NewGroup(g.sched, Panel, g.mw...)
	g.timers.Every("update", UpdateInterval, g.update)
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.log.Info(context.Background(), "decision generator started",
		logging.Int("decisions", len(snap.Decisions)),
		logging.Float("accuracy", snap.Accuracy),
	)
	g.publish(snap)
}

// Stop cancels the tick timer.
func (g *Generator) Stop() {
	g.mu.Lock()
	timers := g.timers
	g.timers = nil
	g.mu.Unlock()

	if timers == nil {
		return
	}
	timers.Stop()
	g.log.Info(context.Background(), "decision generator stopped")
}

// Running reports whether the tick timer is armed.
func (g *Generator) Running() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.timers != nil
}

// Snapshot returns the current feed.
func (g *Generator) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

// Subscribe registers fn for every new snapshot.
func (g *Generator) Subscribe(fn func(Snapshot)) (cancel func()) {
	return g.observers.Subscribe(fn)
}

func (g *Generator) update(at time.Time) {
	g.pub.Lock()
	defer g.pub.Unlock()
	g.mu.Lock()
	if g.timers == nil {
		g.mu.Unlock()
		return
	}
	d := Next(g.src, g.ids, at)
	g.decisions = Prepend(g.decisions, d)
	g.accuracy = StepAccuracy(g.accuracy, g.src)
	g.tick++
	g.updatedAt = at
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.log.Debug(context.Background(), "decision emitted",
		logging.String("id", d.ID),
		logging.String("kind", string(d.Kind)),
		logging.String("application", d.Application),
		logging.Float("accuracy", snap.Accuracy),
	)
	g.publish(snap)
}

func (g *Generator) publish(snap Snapshot) {
	if g.metrics != nil {
		g.metrics.SetDecisionCount(len(snap.Decisions))
		g.metrics.SetModelAccuracy(snap.Accuracy)
	}
	g.observers.Publish(snap)
}

func (g *Generator) snapshotLocked() Snapshot {
	ds := make([]Decision, len(g.decisions))
	for i, d := range g.decisions {
		d.Trend = append([]float64(nil), d.Trend...)
		ds[i] = d
	}
	return Snapshot{
		Decisions: ds,
		Accuracy:  g.accuracy,
		Counts:    CountKinds(ds),
		Tick:      g.tick,
		UpdatedAt: g.updatedAt,
	}
}
