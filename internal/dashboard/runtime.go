// Package dashboard wires the four simulated panels onto one scheduler and
// exposes them as a single start/stop/subscribe unit.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/chat"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/decision"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/notify"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/topology"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/traffic"
)

// ErrUnknownPanel is returned when a caller names a panel that does not
// exist.
var ErrUnknownPanel = errors.New("unknown panel")

// Panels lists every panel name in display order.
var Panels = []string{traffic.Panel, decision.Panel, topology.Panel, chat.Panel}

// ValidPanel reports whether name is one of Panels.
func ValidPanel(name string) bool {
	for _, p := range Panels {
		if p == name {
			return true
		}
	}
	return false
}

// Event carries one panel's new snapshot to runtime subscribers.
type Event struct {
	Panel string
	Data  any
}

// MetricsRecorder is the union of the per-panel recorders.
type MetricsRecorder interface {
	traffic.MetricsRecorder
	decision.MetricsRecorder
	topology.MetricsRecorder
	chat.MetricsRecorder
}

// Config configures a Runtime.
type Config struct {
	// Seed drives every simulation draw. Ids come from a second source
	// derived from the same seed.
	Seed       uint64
	Logger     logging.Logger
	Metrics    MetricsRecorder
	Middleware []sched.Middleware
}

// Runtime owns the scheduler and the four panel controllers.
type Runtime struct {
	Sched     sched.EventScheduler
	Flows     *traffic.Generator
	Decisions *decision.Generator
	Topology  *topology.Simulator
	Chat      *chat.Responder

	store *Store
	log   logging.Logger

	mu      sync.Mutex
	running bool

	observers notify.Broadcaster[Event]
}

const idSeedMix = 0x5851f42d4c957f2d

// NewRuntime builds the four panels on s. Nothing is armed until Start.
func NewRuntime(s sched.EventScheduler, cfg Config) (*Runtime, error) {
	if s == nil {
		return nil, fmt.Errorf("scheduler is nil")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	src := rng.New(cfg.Seed)
	idSrc := rng.New(cfg.Seed ^ idSeedMix)

	r := &Runtime{
		Sched: s,
		store: NewStore(),
		log:   log,
	}

	var (
		flowOpts = []traffic.Option{traffic.WithLogger(log), traffic.WithIDs(rng.UUIDs("flow", idSrc)), traffic.WithMiddleware(cfg.Middleware...)}
		decOpts  = []decision.Option{decision.WithLogger(log), decision.WithIDs(rng.UUIDs("decision", idSrc)), decision.WithMiddleware(cfg.Middleware...)}
		topoOpts = []topology.Option{topology.WithLogger(log), topology.WithIDs(rng.UUIDs("packet", idSrc)), topology.WithMiddleware(cfg.Middleware...)}
		chatOpts = []chat.Option{chat.WithLogger(log), chat.WithIDs(rng.UUIDs("msg", idSrc)), chat.WithMiddleware(cfg.Middleware...)}
	)
	if cfg.Metrics != nil {
		flowOpts = append(flowOpts, traffic.WithMetricsRecorder(cfg.Metrics))
		decOpts = append(decOpts, decision.WithMetricsRecorder(cfg.Metrics))
		topoOpts = append(topoOpts, topology.WithMetricsRecorder(cfg.Metrics))
		chatOpts = append(chatOpts, chat.WithMetricsRecorder(cfg.Metrics))
	}

	r.Flows = traffic.New(s, src, flowOpts...)
	r.Decisions = decision.New(s, src, decOpts...)
	r.Topology = topology.New(s, src, topoOpts...)
	r.Chat = chat.New(s, src, chatOpts...)

	r.Flows.Subscribe(func(v traffic.Snapshot) {
		r.store.SetFlows(v)
		r.observers.Publish(Event{Panel: traffic.Panel, Data: v})
	})
	r.Decisions.Subscribe(func(v decision.Snapshot) {
		r.store.SetDecisions(v)
		r.observers.Publish(Event{Panel: decision.Panel, Data: v})
	})
	r.Topology.Subscribe(func(v topology.Snapshot) {
		r.store.SetTopology(v)
		r.observers.Publish(Event{Panel: topology.Panel, Data: v})
	})
	r.Chat.Subscribe(func(v chat.Snapshot) {
		r.store.SetChat(v)
		r.observers.Publish(Event{Panel: chat.Panel, Data: v})
	})

	return r, nil
}

// Start mounts every panel and arms its timers.
func (r *Runtime) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.Flows.Start()
	r.Decisions.Start()
	r.Topology.Start()
	r.Chat.Start()
	r.running = true
	r.log.Info(context.Background(), "dashboard started", logging.Any("panels", Panels))
}

// Stop cancels every panel timer. Snapshots stay readable.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.Flows.Stop()
	r.Decisions.Stop()
	r.Topology.Stop()
	r.Chat.Stop()
	r.running = false
	r.log.Info(context.Background(), "dashboard stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Snapshot returns the latest state of every panel.
func (r *Runtime) Snapshot() Snapshot {
	return r.store.Snapshot()
}

// Store exposes the snapshot store for readers that poll.
func (r *Runtime) Store() *Store { return r.store }

// PanelSnapshot returns the latest snapshot of one panel.
func (r *Runtime) PanelSnapshot(panel string) (any, error) {
	snap := r.store.Snapshot()
	switch panel {
	case traffic.Panel:
		return snap.Flows, nil
	case decision.Panel:
		return snap.Decisions, nil
	case topology.Panel:
		return snap.Topology, nil
	case chat.Panel:
		return snap.Chat, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPanel, panel)
	}
}

// Subscribe registers fn for every panel update. fn runs synchronously on
// the goroutine that produced the update and must not block.
func (r *Runtime) Subscribe(fn func(Event)) (cancel func()) {
	return r.observers.Subscribe(fn)
}

// SubmitChatText forwards text to the chat panel. It reports whether a
// message was appended; blank text is silently ignored.
func (r *Runtime) SubmitChatText(text string) bool {
	return r.Chat.Send(text)
}

// SelectTopologyNode marks a node as selected for display. An empty or
// unknown id clears the selection.
func (r *Runtime) SelectTopologyNode(id string) bool {
	if id == "" {
		r.Topology.ClearSelection()
		return false
	}
	return r.Topology.SelectNode(id)
}

// ClearTopologySelection drops the selected node.
func (r *Runtime) ClearTopologySelection() {
	r.Topology.ClearSelection()
}
