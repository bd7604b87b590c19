package dashboard

import (
	"sync"

	"github.com/signalsfoundry/qos-dashboard/internal/sim/chat"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/decision"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/topology"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/traffic"
)

// Snapshot is the state of all four panels.
type Snapshot struct {
	Flows     traffic.Snapshot  `json:"flows"`
	Decisions decision.Snapshot `json:"decisions"`
	Topology  topology.Snapshot `json:"topology"`
	Chat      chat.Snapshot     `json:"chat"`
	Version   uint64            `json:"version"`
}

// Store holds the latest snapshot of every panel so readers on other
// goroutines never block the simulation.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// SetFlows replaces the flow panel snapshot and bumps the version.
func (s *Store) SetFlows(v traffic.Snapshot) {
	s.mu.Lock()
	s.snap.Flows = v
	s.snap.Version++
	s.mu.Unlock()
}

// SetDecisions replaces the decision feed snapshot and bumps the version.
func (s *Store) SetDecisions(v decision.Snapshot) {
	s.mu.Lock()
	s.snap.Decisions = v
	s.snap.Version++
	s.mu.Unlock()
}

// SetTopology replaces the topology diagram snapshot and bumps the version.
func (s *Store) SetTopology(v topology.Snapshot) {
	s.mu.Lock()
	s.snap.Topology = v
	s.snap.Version++
	s.mu.Unlock()
}

// SetChat replaces the chat transcript snapshot and bumps the version.
func (s *Store) SetChat(v chat.Snapshot) {
	s.mu.Lock()
	s.snap.Chat = v
	s.snap.Version++
	s.mu.Unlock()
}

// Snapshot returns the latest values. Panel snapshots are immutable once
// stored, so a shallow copy is safe to hand out.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Version increments on every stored update.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Version
}
