package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/chat"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/decision"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/topology"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/traffic"
)

func newStartedRuntime(t *testing.T, seed uint64) (*Runtime, *sched.FakeScheduler) {
	t.Helper()
	s := sched.NewFakeScheduler(time.Unix(1_700_000_000, 0))
	r, err := NewRuntime(s, Config{Seed: seed})
	require.NoError(t, err)
	r.Start()
	t.Cleanup(r.Stop)
	return r, s
}

func TestNewRuntime_RequiresScheduler(t *testing.T) {
	_, err := NewRuntime(nil, Config{})
	require.Error(t, err)
}

func TestRuntime_StartMountsEveryPanel(t *testing.T) {
	r, _ := newStartedRuntime(t, 1)
	snap := r.Snapshot()

	assert.Len(t, snap.Flows.Flows, traffic.InitialFlows)
	assert.Len(t, snap.Decisions.Decisions, decision.InitialDecisions)
	assert.Equal(t, decision.InitialAccuracy, snap.Decisions.Accuracy)
	assert.Len(t, snap.Topology.Nodes, 11)
	require.Len(t, snap.Chat.Messages, 1)
	assert.Equal(t, chat.Greeting, snap.Chat.Messages[0].Content)
	assert.Equal(t, uint64(4), snap.Version)
	assert.True(t, r.Running())
}

func TestRuntime_StopCancelsAllTimers(t *testing.T) {
	r, s := newStartedRuntime(t, 1)
	r.SubmitChatText("hello")
	require.Positive(t, s.Pending())

	r.Stop()
	r.Stop()
	assert.Equal(t, 0, s.Pending())
	assert.False(t, r.Running())
}

func TestRuntime_EventsNamePanels(t *testing.T) {
	r, s := newStartedRuntime(t, 2)

	seen := map[string]int{}
	cancel := r.Subscribe(func(ev Event) { seen[ev.Panel]++ })
	defer cancel()

	s.Advance(decision.UpdateInterval)

	assert.Equal(t, 2, seen[traffic.Panel])
	assert.Equal(t, 1, seen[decision.Panel])
	assert.Zero(t, seen[chat.Panel])
	for panel := range seen {
		assert.True(t, ValidPanel(panel), panel)
	}
}

func TestRuntime_UserActions(t *testing.T) {
	r, s := newStartedRuntime(t, 3)

	assert.False(t, r.SubmitChatText("   "))
	assert.True(t, r.SubmitChatText("hello"))
	assert.Len(t, r.Snapshot().Chat.Messages, 2)
	assert.True(t, r.Snapshot().Chat.Typing)

	s.Advance(chat.MaxReplyDelay)
	assert.Len(t, r.Snapshot().Chat.Messages, 3)

	assert.True(t, r.SelectTopologyNode("upf1"))
	require.NotNil(t, r.Snapshot().Topology.Selected)
	assert.Equal(t, 5, r.Snapshot().Topology.Selected.Connections)

	r.ClearTopologySelection()
	assert.Nil(t, r.Snapshot().Topology.Selected)

	assert.False(t, r.SelectTopologyNode("ghost"))
	assert.False(t, r.SelectTopologyNode(""))
}

func TestRuntime_PanelSnapshot(t *testing.T) {
	r, _ := newStartedRuntime(t, 4)

	for _, panel := range Panels {
		v, err := r.PanelSnapshot(panel)
		require.NoError(t, err, panel)
		assert.NotNil(t, v)
	}
	v, err := r.PanelSnapshot(topology.Panel)
	require.NoError(t, err)
	assert.IsType(t, topology.Snapshot{}, v)

	_, err = r.PanelSnapshot("weather")
	assert.True(t, errors.Is(err, ErrUnknownPanel))
}

func TestRuntime_SameSeedSameRun(t *testing.T) {
	a, sa := newStartedRuntime(t, 42)
	b, sb := newStartedRuntime(t, 42)

	sa.Advance(30 * time.Second)
	sb.Advance(30 * time.Second)

	assert.Equal(t, a.Snapshot(), b.Snapshot())
}
