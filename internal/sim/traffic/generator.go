package traffic

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/notify"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

// Panel is the name the flow list reports under in logs, metrics and APIs.
const Panel = "flows"

// UpdateInterval is the period of the update tick.
const UpdateInterval = 2 * time.Second

// Snapshot is an immutable view of the flow list.
type Snapshot struct {
	Flows      []Flow         `json:"flows"`
	Directions DirectionStats `json:"directions"`
	Priorities PriorityStats  `json:"priorities"`
	Tick       uint64         `json:"tick"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// MetricsRecorder receives the flow count after every mutation.
type MetricsRecorder interface {
	SetFlowCount(n int)
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

// WithIDs overrides flow id generation.
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

// Generator owns the flow list and its update timer.
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
	flows     []Flow
	tick      uint64
	updatedAt time.Time
	timers    *sched.Group

	observers notify.Broadcaster[Snapshot]
}

// New constructs a stopped Generator drawing from src.
func New(s sched.EventScheduler, src rng.Source, opts ...Option) *Generator {
	g := &Generator{
		sched: s,
		src:   src,
		ids:   rng.Counter("flow"),
		log:   logging.Noop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logging.Panel(Panel))
	return g
}

// Start mounts the initial flows and arms the update timer. Calling Start
// on a running generator is a no-op.
func (g *Generator) Start() {
	g.pub.Lock()
	defer g.pub.Unlock()
	g.mu.Lock()
	if g.timers != nil {
		g.mu.Unlock()
		return
	}
	g.flows = Mount(g.src, g.ids)
	g.tick = 0
	g.updatedAt = g.sched.Now()
	g.timers = sched.NewGroup(g.sched, Panel, g.mw...)
	g.timers.Every("update", UpdateInterval, g.update)
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.log.Info(context.Background(), "flow generator started", logging.Int("flows", len(snap.Flows)))
	g.publish(snap)
}

// Stop cancels the update timer. The last snapshot stays readable.
func (g *Generator) Stop() {
	g.mu.Lock()
	timers := g.timers
	g.timers = nil
	g.mu.Unlock()

	if timers == nil {
		return
	}
	timers.Stop()
	g.log.Info(context.Background(), "flow generator stopped")
}

// Running reports whether the update timer is armed.
func (g *Generator) Running() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.timers != nil
}

// Snapshot returns the current flow list.
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
	next, ch := Step(g.flows, g.src, g.ids)
	g.flows = next
	g.tick++
	g.updatedAt = at
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.log.Debug(context.Background(), "flows updated",
		logging.Int("flows", len(snap.Flows)),
		logging.Int("updated_index", ch.Updated),
		logging.String("added", ch.Added),
		logging.String("evicted", ch.Evicted),
	)
	g.publish(snap)
}

func (g *Generator) publish(snap Snapshot) {
	if g.metrics != nil {
		g.metrics.SetFlowCount(len(snap.Flows))
	}
	g.observers.Publish(snap)
}

func (g *Generator) snapshotLocked() Snapshot {
	flows := make([]Flow, len(g.flows))
	copy(flows, g.flows)
	return Snapshot{
		Flows:      flows,
		Directions: CountDirections(flows),
		Priorities: CountPriorities(flows),
		Tick:       g.tick,
		UpdatedAt:  g.updatedAt,
	}
}
