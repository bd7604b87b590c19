package traffic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

type fakeRecorder struct{ counts []int }

func (r *fakeRecorder) SetFlowCount(n int) { r.counts = append(r.counts, n) }

func TestGenerator_StartMountsAndTicks(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	s := sched.NewFakeScheduler(start)
	rec := &fakeRecorder{}
	g := New(s, rng.New(7), WithMetricsRecorder(rec))

	var got []Snapshot
	cancel := g.Subscribe(func(snap Snapshot) { got = append(got, snap) })
	defer cancel()

	g.Start()
	require.True(t, g.Running())
	require.Len(t, got, 1)
	assert.Len(t, got[0].Flows, InitialFlows)
	assert.Equal(t, uint64(0), got[0].Tick)
	assert.True(t, got[0].UpdatedAt.Equal(start))

	s.Advance(UpdateInterval)
	snap := g.Snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	assert.True(t, snap.UpdatedAt.Equal(start.Add(UpdateInterval)))

	s.Advance(10 * UpdateInterval)
	snap = g.Snapshot()
	assert.Equal(t, uint64(11), snap.Tick)
	assert.LessOrEqual(t, len(snap.Flows), MaxFlows)
	assert.Len(t, got, 12)
	assert.Len(t, rec.counts, 12)
	assert.Equal(t, len(snap.Flows), rec.counts[len(rec.counts)-1])

	dirs := snap.Directions
	assert.Equal(t, len(snap.Flows), dirs.Uplink+dirs.Downlink+dirs.Balanced)
}

func TestGenerator_StopCancelsTimer(t *testing.T) {
	s := sched.NewFakeScheduler(time.Unix(0, 0))
	g := New(s, rng.New(3))
	g.Start()
	s.Advance(UpdateInterval)

	g.Stop()
	g.Stop()
	assert.False(t, g.Running())
	assert.Equal(t, 0, s.Pending())

	before := g.Snapshot()
	s.Advance(time.Minute)
	assert.Equal(t, before, g.Snapshot())
}

func TestGenerator_StartIsIdempotent(t *testing.T) {
	s := sched.NewFakeScheduler(time.Unix(0, 0))
	g := New(s, rng.New(3))
	g.Start()
	first := g.Snapshot()
	g.Start()

	assert.Equal(t, first, g.Snapshot())
	assert.Equal(t, 1, s.Pending())
}

func TestGenerator_SnapshotIsCopy(t *testing.T) {
	s := sched.NewFakeScheduler(time.Unix(0, 0))
	g := New(s, rng.New(5))
	g.Start()

	snap := g.Snapshot()
	snap.Flows[0].Application = "mutated"
	assert.NotEqual(t, "mutated", g.Snapshot().Flows[0].Application)
}

func TestGenerator_MiddlewareSeesPanelTimer(t *testing.T) {
	s := sched.NewFakeScheduler(time.Unix(0, 0))
	var seen []string
	mw := func(panel, timer string, fire func()) {
		seen = append(seen, panel+"/"+timer)
		fire()
	}
	g := New(s, rng.New(5), WithMiddleware(mw))
	g.Start()
	s.Advance(2 * UpdateInterval)

	assert.Equal(t, []string{"flows/update", "flows/update"}, seen)
	assert.Equal(t, uint64(2), g.Snapshot().Tick)
}

func TestGenerator_CustomIDs(t *testing.T) {
	s := sched.NewFakeScheduler(time.Unix(0, 0))
	g := New(s, rng.New(5), WithIDs(rng.UUIDs("flow", rng.New(99))))
	g.Start()

	seen := map[string]bool{}
	for _, f := range g.Snapshot().Flows {
		assert.Contains(t, f.ID, "flow-")
		assert.False(t, seen[f.ID], "duplicate id %s", f.ID)
		seen[f.ID] = true
	}
}
