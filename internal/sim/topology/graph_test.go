package topology

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/qos-dashboard/internal/sim/catalog"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

func TestDefaultGraph(t *testing.T) {
	nodes := DefaultNodes()
	edges := DefaultEdges()

	require.Len(t, nodes, 11)
	require.Len(t, edges, 11)
	assert.Equal(t, 11, CountActive(nodes))
	assert.Len(t, carriers(edges), 7)

	ids := map[string]bool{}
	for _, n := range nodes {
		ids[n.ID] = true
	}
	for _, e := range edges {
		assert.True(t, ids[e.From], "edge from unknown node %s", e.From)
		assert.True(t, ids[e.To], "edge to unknown node %s", e.To)
	}

	nodes[0].Label = "mutated"
	assert.Equal(t, "Netflix", DefaultNodes()[0].Label)
}

func TestConnections(t *testing.T) {
	edges := DefaultEdges()
	assert.Equal(t, 6, Connections(edges, "gnb1"))
	assert.Equal(t, 5, Connections(edges, "upf1"))
	assert.Equal(t, 1, Connections(edges, "ue1"))
	assert.Equal(t, 0, Connections(edges, "missing"))
}

func TestPosition_FallsBackToOrigin(t *testing.T) {
	nodes := DefaultNodes()
	assert.Equal(t, Point{X: 30, Y: 47}, Position(nodes, "gnb1"))
	assert.Equal(t, Point{}, Position(nodes, "missing"))
}

func TestPacketPosition_Endpoints(t *testing.T) {
	nodes := DefaultNodes()
	for _, e := range DefaultEdges() {
		p := Packet{From: e.From, To: e.To}
		assert.Equal(t, Position(nodes, e.From), PacketPosition(nodes, p), "start of %s->%s", e.From, e.To)

		p.Progress = MaxProgress
		assert.Equal(t, Position(nodes, e.To), PacketPosition(nodes, p), "end of %s->%s", e.From, e.To)
	}

	mid := PacketPosition(nodes, Packet{From: "ue1", To: "gnb1", Progress: 50})
	assert.InDelta(t, 20.0, mid.X, 1e-9)
	assert.InDelta(t, 36.0, mid.Y, 1e-9)
}

func TestPacketPosition_UnknownEndpoint(t *testing.T) {
	nodes := DefaultNodes()
	p := Packet{From: "ghost", To: "gnb1", Progress: 50}
	assert.Equal(t, Point{X: 15, Y: 23.5}, PacketPosition(nodes, p))
}

func TestLerpEndpointProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("lerp hits both endpoints exactly", prop.ForAll(
		func(ax, ay, bx, by float64) bool {
			a, b := Point{X: ax, Y: ay}, Point{X: bx, Y: by}
			return Lerp(a, b, 0) == a && Lerp(a, b, 1) == b
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}

func TestSpawn(t *testing.T) {
	edges := DefaultEdges()

	p, ok := Spawn(edges, rng.NewSequence(0.5, 0.0), rng.Counter("packet"))
	require.True(t, ok)
	assert.Equal(t, Packet{
		ID:          "packet-1",
		From:        "ue1",
		To:          "gnb1",
		QoS:         catalog.QoSMedium,
		Application: "Netflix",
	}, p)

	p, ok = Spawn(edges, rng.NewSequence(0.5, 0.2), rng.Counter("packet"))
	require.True(t, ok)
	assert.Equal(t, "Microsoft Teams", p.Application)
	assert.Equal(t, catalog.QoSHigh, p.QoS)
}

func TestSpawn_UnresolvedTagSkips(t *testing.T) {
	// index 6 is upf1->srv3 tagged "Conference"
	_, ok := Spawn(DefaultEdges(), rng.NewSequence(0.5, 0.9), rng.Counter("packet"))
	assert.False(t, ok)
}

func TestSpawn_BelowThreshold(t *testing.T) {
	src := rng.NewSequence(0.2)
	_, ok := Spawn(DefaultEdges(), src, rng.Counter("packet"))
	assert.False(t, ok)
	assert.Equal(t, 1, src.Draws())
}

func TestSpawn_NoCarrierDoesNotDraw(t *testing.T) {
	src := rng.NewSequence(0.9)
	edges := []Edge{{From: "a", To: "b", Active: true}, {From: "b", To: "c", Application: "Netflix"}}
	_, ok := Spawn(edges, src, rng.Counter("packet"))
	assert.False(t, ok)
	assert.Equal(t, 0, src.Draws())
}

func TestAnimate_TwentyPacketsClearInThirtyTicks(t *testing.T) {
	ids := rng.Counter("packet")
	live := make([]Packet, 20)
	for i := range live {
		live[i] = Packet{ID: ids(), From: "a", To: "b"}
	}

	delivered := 0
	for tick := 1; tick <= 30; tick++ {
		prev := live
		var n int
		live, n = Animate(prev)
		delivered += n
		for _, p := range live {
			assert.LessOrEqual(t, p.Progress, MaxProgress)
		}
		if tick == 25 {
			require.Len(t, live, 20)
			assert.Equal(t, MaxProgress, live[0].Progress)
		}
		if tick == 26 {
			assert.Empty(t, live)
		}
	}
	assert.Empty(t, live)
	assert.Equal(t, 20, delivered)
}

func TestAnimate_DoesNotModifyInput(t *testing.T) {
	prev := []Packet{{ID: "p", Progress: 10}}
	next, _ := Animate(prev)
	assert.Equal(t, 10, prev[0].Progress)
	assert.Equal(t, 14, next[0].Progress)
}

func TestToggleStatuses(t *testing.T) {
	nodes := DefaultNodes()
	next, changed := ToggleStatuses(nodes, rng.NewSequence(0.98, 0.5))

	assert.Len(t, changed, 6)
	assert.Equal(t, 5, CountActive(next))
	assert.Equal(t, StatusWarning, next[0].Status)
	assert.Equal(t, StatusActive, next[1].Status)
	assert.Equal(t, 11, CountActive(nodes), "input must not change")

	back, _ := ToggleStatuses(next, rng.NewSequence(0.99))
	assert.Equal(t, 6, CountActive(back))
	for _, n := range back {
		assert.NotEqual(t, StatusOffline, n.Status)
	}
}
