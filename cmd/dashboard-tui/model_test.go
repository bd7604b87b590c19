package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/chat"
)

func newTestModel(t *testing.T) (model, *dashboard.Runtime, *sched.FakeScheduler) {
	t.Helper()
	s := sched.NewFakeScheduler(time.Unix(1_700_000_000, 0))
	rt, err := dashboard.NewRuntime(s, dashboard.Config{Seed: 3})
	require.NoError(t, err)
	rt.Start()
	t.Cleanup(rt.Stop)
	return initialModel(rt, time.Second), rt, s
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	for _, r := range text {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestTabsCycle(t *testing.T) {
	m, _, _ := newTestModel(t)
	assert.Equal(t, flowsView, m.currentView)

	for _, want := range []view{decisionsView, topologyView, chatView, flowsView} {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
		assert.Equal(t, want, m.currentView)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, chatView, m.currentView)
}

func TestFlowsViewShowsTable(t *testing.T) {
	m, rt, _ := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "Uplink")
	assert.Contains(t, out, rt.Snapshot().Flows.Flows[0].Application)
}

func TestTickPullsSnapshot(t *testing.T) {
	m, rt, s := newTestModel(t)
	s.Advance(2 * time.Second)
	assert.NotEqual(t, rt.Snapshot().Version, m.snap.Version)

	m = update(t, m, tickMsg(time.Now()))
	assert.Equal(t, rt.Snapshot().Version, m.snap.Version)
}

func TestChatSend(t *testing.T) {
	m, rt, s := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, chatView, m.currentView)

	m = typeText(t, m, "hello")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.chatInput.Value())
	assert.Len(t, rt.Snapshot().Chat.Messages, 2)
	assert.Contains(t, m.View(), "assistant is typing")

	s.Advance(chat.MaxReplyDelay)
	m = update(t, m, tickMsg(time.Now()))
	assert.NotContains(t, m.View(), "assistant is typing")
}

func TestTopologySelect(t *testing.T) {
	m, rt, _ := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, topologyView, m.currentView)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	sel := rt.Snapshot().Topology.Selected
	require.NotNil(t, sel)
	assert.Equal(t, rt.Snapshot().Topology.Nodes[0].ID, sel.Node.ID)
	assert.Contains(t, m.View(), "Selected")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, rt.Snapshot().Topology.Selected)
	assert.NotContains(t, m.View(), "Selected")
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁█", sparkline([]float64{0, 100}))
	assert.Equal(t, 10, len([]rune(sparkline(make([]float64, 10)))))
	assert.True(t, strings.HasPrefix(sparkline([]float64{50}), "▅"))
}
