package topology

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/notify"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

// Panel is the name the topology diagram reports under.
const Panel = "topology"

const (
	SpawnInterval   = 600 * time.Millisecond
	AnimateInterval = 50 * time.Millisecond
	StatusInterval  = 5 * time.Second
)

// Selection describes the node the user picked, with its current state.
type Selection struct {
	Node        Node `json:"node"`
	Connections int  `json:"connections"`
}

// Snapshot is an immutable view of the diagram.
type Snapshot struct {
	Nodes       []Node     `json:"nodes"`
	Edges       []Edge     `json:"edges"`
	Packets     []Packet   `json:"packets"`
	ActiveNodes int        `json:"active_nodes"`
	Selected    *Selection `json:"selected,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PacketPositions places every live packet on the canvas.
func (s Snapshot) PacketPositions() []Point {
	out := make([]Point, len(s.Packets))
	for i, p := range s.Packets {
		out[i] = PacketPosition(s.Nodes, p)
	}
	return out
}

// MetricsRecorder receives packet lifecycle counts.
type MetricsRecorder interface {
	SetLivePackets(n int)
	PacketSpawned(application string)
	PacketsDelivered(n int)
}

// Option customises Simulator construction.
type Option func(*Simulator)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Simulator) { s.metrics = m }
}

// WithIDs overrides packet id generation.
func WithIDs(ids rng.IDFunc) Option {
	return func(s *Simulator) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithMiddleware wraps every timer firing.
func WithMiddleware(mw ...sched.Middleware) Option {
	return func(s *Simulator) { s.mw = append(s.mw, mw...) }
}

// WithGraph replaces the fixed node and link set.
func WithGraph(nodes []Node, edges []Edge) Option {
	return func(s *Simulator) {
		s.baseNodes = append([]Node(nil), nodes...)
		s.edges = append([]Edge(nil), edges...)
	}
}

// Simulator owns the diagram state and its three timers.
type Simulator struct {
	sched   sched.EventScheduler
	src     rng.Source
	ids     rng.IDFunc
	log     logging.Logger
	metrics MetricsRecorder
	mw      []sched.Middleware

	baseNodes []Node
	edges     []Edge

	// pub is held from snapshot through Publish so observers see
	// snapshots in mutation order. Taken before mu.
	pub sync.Mutex

	mu        sync.RWMutex
	nodes     []Node
	packets   []Packet
	selected  string
	updatedAt time.Time
	timers    *sched.Group

	observers notify.Broadcaster[Snapshot]
}

// New constructs a stopped Simulator over the fixed graph.
func New(s sched.EventScheduler, src rng.Source, opts ...Option) *Simulator {
	sim := &Simulator{
		sched:     s,
		src:       src,
		ids:       rng.Counter("packet"),
		log:       logging.Noop(),
		baseNodes: DefaultNodes(),
		edges:     DefaultEdges(),
	}
	for _, opt := range opts {
		opt(sim)
	}
	sim.log = sim.log.With(logging.Panel(Panel))
	sim.nodes = append([]Node(nil), sim.baseNodes...)
	return sim
}

// Start resets the graph and arms the spawn, animation and status timers.
func (s *Simulator) Start() {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.timers != nil {
		s.mu.Unlock()
		return
	}
	s.nodes = append([]Node(nil), s.baseNodes...)
	s.packets = nil
	s.selected = ""
	s.updatedAt = s.sched.Now()
	s.timers = sched.NewGroup(s.sched, Panel, s.mw...)
	s.timers.Every("spawn", SpawnInterval, s.spawn)
	s.timers.Every("animate", AnimateInterval, s.animate)
	s.timers.Every("status", StatusInterval, s.status)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info(context.Background(), "topology simulator started",
		logging.Int("nodes", len(snap.Nodes)),
		logging.Int("edges", len(snap.Edges)),
	)
	s.publish(snap)
}

// Stop cancels every timer. Live packets stay frozen in the last snapshot.
func (s *Simulator) Stop() {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	s.mu.Unlock()

	if timers == nil {
		return
	}
	timers.Stop()
	s.log.Info(context.Background(), "topology simulator stopped")
}

// Running reports whether the timers are armed.
func (s *Simulator) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timers != nil
}

// Snapshot returns the current diagram.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every new snapshot.
func (s *Simulator) Subscribe(fn func(Snapshot)) (cancel func()) {
	return s.observers.Subscribe(fn)
}

// SelectNode marks id as the selected node. An unknown id clears the
// selection and reports false. Selection never affects the simulation.
func (s *Simulator) SelectNode(id string) bool {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	found := false
	for _, n := range s.nodes {
		if n.ID == id {
			found = true
			break
		}
	}
	if found {
		s.selected = id
	} else {
		s.selected = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug(context.Background(), "node selected",
		logging.String("node", id),
		logging.Bool("found", found),
	)
	s.observers.Publish(snap)
	return found
}

// ClearSelection drops the selected node.
func (s *Simulator) ClearSelection() {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	s.selected = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.observers.Publish(snap)
}

func (s *Simulator) spawn(at time.Time) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.timers == nil {
		s.mu.Unlock()
		return
	}
	p, ok := Spawn(s.edges, s.src, s.ids)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.packets = append(s.packets[:len(s.packets):len(s.packets)], p)
	s.updatedAt = at
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug(context.Background(), "packet spawned",
		logging.String("id", p.ID),
		logging.String("from", p.From),
		logging.String("to", p.To),
		logging.String("application", p.Application),
	)
	if s.metrics != nil {
		s.metrics.PacketSpawned(p.Application)
	}
	s.publish(snap)
}

func (s *Simulator) animate(at time.Time) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.timers == nil || len(s.packets) == 0 {
		s.mu.Unlock()
		return
	}
	var delivered int
	s.packets, delivered = Animate(s.packets)
	s.updatedAt = at
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.metrics != nil && delivered > 0 {
		s.metrics.PacketsDelivered(delivered)
	}
	s.publish(snap)
}

func (s *Simulator) status(at time.Time) {
	s.pub.Lock()
	defer s.pub.Unlock()
	s.mu.Lock()
	if s.timers == nil {
		s.mu.Unlock()
		return
	}
	var changed []string
	s.nodes, changed = ToggleStatuses(s.nodes, s.src)
	if len(changed) == 0 {
		s.mu.Unlock()
		return
	}
	s.updatedAt = at
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug(context.Background(), "node status toggled", logging.Any("nodes", changed))
	s.publish(snap)
}

func (s *Simulator) publish(snap Snapshot) {
	if s.metrics != nil {
		s.metrics.SetLivePackets(len(snap.Packets))
	}
	s.observers.Publish(snap)
}

func (s *Simulator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Nodes:       append([]Node(nil), s.nodes...),
		Edges:       append([]Edge(nil), s.edges...),
		Packets:     append([]Packet{}, s.packets...),
		ActiveNodes: CountActive(s.nodes),
		UpdatedAt:   s.updatedAt,
	}
	if s.selected != "" {
		for _, n := range s.nodes {
			if n.ID == s.selected {
				snap.Selected = &Selection{Node: n, Connections: Connections(s.edges, n.ID)}
				break
			}
		}
	}
	return snap
}
