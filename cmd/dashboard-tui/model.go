package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/catalog"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/chat"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/topology"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginRight(2)

	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	userStyle   = lipgloss.NewStyle().Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	flowsView view = iota
	decisionsView
	topologyView
	chatView
	viewCount
)

var tabNames = []string{"Flows", "Decisions", "Topology", "Assistant"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Clear    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next panel"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev panel"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select / send"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear selection"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Clear, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Tab, k.ShiftTab}, {k.Enter, k.Clear}, {k.Quit}}
}

// Dashboard is what the TUI reads from and acts on.
type Dashboard interface {
	Snapshot() dashboard.Snapshot
	SubmitChatText(text string) bool
	SelectTopologyNode(id string) bool
	ClearTopologySelection()
}

type model struct {
	dash        Dashboard
	snap        dashboard.Snapshot
	currentView view
	flowTable   table.Model
	nodeTable   table.Model
	chatInput   textinput.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	refresh     time.Duration
}

type tickMsg time.Time

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newTable(columns []table.Column, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func initialModel(dash Dashboard, refresh time.Duration) model {
	ti := textinput.New()
	ti.Placeholder = chat.QuickActions()[0]
	ti.CharLimit = 200
	ti.Width = 60

	m := model{
		dash:        dash,
		currentView: flowsView,
		flowTable: newTable([]table.Column{
			{Title: "Application", Width: 18},
			{Title: "Priority", Width: 8},
			{Title: "Direction", Width: 10},
			{Title: "Rate", Width: 12},
			{Title: "Status", Width: 8},
		}, 12),
		nodeTable: newTable([]table.Column{
			{Title: "ID", Width: 8},
			{Title: "Type", Width: 6},
			{Title: "Label", Width: 16},
			{Title: "Status", Width: 8},
		}, 11),
		chatInput: ti,
		help:      help.New(),
		keys:      keys,
		refresh:   refresh,
	}
	m.setView(flowsView)
	m.pull()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tickCmd())
}

// pull copies the latest runtime state into the model and its tables.
func (m *model) pull() {
	m.snap = m.dash.Snapshot()

	flowRows := make([]table.Row, 0, len(m.snap.Flows.Flows))
	for _, f := range m.snap.Flows.Flows {
		flowRows = append(flowRows, table.Row{f.Application, string(f.Priority), f.Direction.Label(), f.Rate, string(f.Status)})
	}
	m.flowTable.SetRows(flowRows)

	nodeRows := make([]table.Row, 0, len(m.snap.Topology.Nodes))
	for _, n := range m.snap.Topology.Nodes {
		nodeRows = append(nodeRows, table.Row{n.ID, string(n.Type), n.Label, string(n.Status)})
	}
	m.nodeTable.SetRows(nodeRows)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.pull()
		return m, m.tickCmd()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.setView((m.currentView + 1) % viewCount)
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.setView((m.currentView + viewCount - 1) % viewCount)
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			switch m.currentView {
			case chatView:
				m.dash.SubmitChatText(m.chatInput.Value())
				m.chatInput.SetValue("")
				m.pull()
				return m, nil
			case topologyView:
				if row := m.nodeTable.SelectedRow(); row != nil {
					m.dash.SelectTopologyNode(row[0])
					m.pull()
				}
				return m, nil
			}

		case key.Matches(msg, m.keys.Clear):
			if m.currentView == topologyView {
				m.dash.ClearTopologySelection()
				m.pull()
				return m, nil
			}
		}
	}

	switch m.currentView {
	case chatView:
		m.chatInput, cmd = m.chatInput.Update(msg)
		cmds = append(cmds, cmd)
	case topologyView:
		m.nodeTable, cmd = m.nodeTable.Update(msg)
		cmds = append(cmds, cmd)
	case flowsView:
		m.flowTable, cmd = m.flowTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) setView(v view) {
	m.currentView = v
	m.flowTable.Blur()
	m.nodeTable.Blur()
	m.chatInput.Blur()
	switch v {
	case flowsView:
		m.flowTable.Focus()
	case topologyView:
		m.nodeTable.Focus()
	case chatView:
		m.chatInput.Focus()
	}
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Network Priority Dashboard"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case flowsView:
		s.WriteString(m.renderFlows())
	case decisionsView:
		s.WriteString(m.renderDecisions())
	case topologyView:
		s.WriteString(m.renderTopology())
	case chatView:
		s.WriteString(m.renderChat())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}

func (m model) renderTabs() string {
	rendered := make([]string, 0, len(tabNames))
	for i, tab := range tabNames {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderFlows() string {
	d := m.snap.Flows.Directions
	p := m.snap.Flows.Priorities
	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(fmt.Sprintf("Uplink    %d\nDownlink  %d\nBalanced  %d", d.Uplink, d.Downlink, d.Balanced)),
		statsBoxStyle.Render(fmt.Sprintf("%s  %d\n%s  %d\n%s  %d",
			highStyle.Render("High  "), p.High,
			mediumStyle.Render("Medium"), p.Medium,
			lowStyle.Render("Low   "), p.Low)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, stats, m.flowTable.View())
}

func (m model) renderDecisions() string {
	d := m.snap.Decisions
	var s strings.Builder
	s.WriteString(statsBoxStyle.Render(fmt.Sprintf("Model accuracy  %.1f%%\nPredictions %d  Enforced %d  Alerts %d",
		d.Accuracy, d.Counts.Predictions, d.Counts.Enforced, d.Counts.Alerts)))
	s.WriteString("\n")
	for _, dec := range d.Decisions {
		fmt.Fprintf(&s, "  %-11s %-11s %-18s %5.1f%%  %s\n",
			dec.Timestamp, dec.Kind, dec.Application, dec.Confidence, sparkline(dec.Trend))
	}
	return s.String()
}

func (m model) renderTopology() string {
	t := m.snap.Topology
	var s strings.Builder
	fmt.Fprintf(&s, "Active nodes %d/%d   Live packets %d\n", t.ActiveNodes, len(t.Nodes), len(t.Packets))
	s.WriteString(m.nodeTable.View())
	s.WriteString("\n")
	if t.Selected != nil {
		fmt.Fprintf(&s, "Selected %s (%s): %d connections\n", t.Selected.Node.Label, t.Selected.Node.ID, t.Selected.Connections)
	}
	for i, p := range t.Packets {
		if i == 6 {
			fmt.Fprintf(&s, "  … %d more\n", len(t.Packets)-i)
			break
		}
		pos := topology.PacketPosition(t.Nodes, p)
		fmt.Fprintf(&s, "  %s %s→%s %3d%% (%.0f,%.0f)\n", qosStyle(p.QoS).Render("●"), p.From, p.To, p.Progress, pos.X, pos.Y)
	}
	return s.String()
}

func (m model) renderChat() string {
	var s strings.Builder
	msgs := m.snap.Chat.Messages
	if len(msgs) > 8 {
		msgs = msgs[len(msgs)-8:]
	}
	for _, msg := range msgs {
		if msg.Role == chat.RoleUser {
			s.WriteString(userStyle.Render("you: "+msg.Content) + "\n")
		} else {
			s.WriteString(botStyle.Render("assistant: "+msg.Content) + "\n")
		}
	}
	if m.snap.Chat.Typing {
		s.WriteString(botStyle.Render("assistant is typing…") + "\n")
	}
	s.WriteString("\n" + m.chatInput.View())
	return s.String()
}

func qosStyle(c catalog.QoSClass) lipgloss.Style {
	switch c {
	case catalog.QoSHigh:
		return highStyle
	case catalog.QoSMedium:
		return mediumStyle
	default:
		return lowStyle
	}
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline renders values in [0,100] as block characters.
func sparkline(values []float64) string {
	out := make([]rune, 0, len(values))
	for _, v := range values {
		i := int(v / 100 * float64(len(sparkRunes)))
		if i < 0 {
			i = 0
		}
		if i >= len(sparkRunes) {
			i = len(sparkRunes) - 1
		}
		out = append(out, sparkRunes[i])
	}
	return string(out)
}
