// Package client fetches dashboard panels over HTTP and prints them as
// tables.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/signalsfoundry/qos-dashboard/internal/dashboard"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/chat"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/decision"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/topology"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/traffic"
)

// PanelAll prints every panel.
const PanelAll = "all"

type Config struct {
	Server string
	// Panel is one of dashboard.Panels or PanelAll.
	Panel string
	// Say, when set, is posted to the assistant before panels are printed.
	Say string
	Out io.Writer
}

func Run(cfg Config) error {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Panel == "" {
		cfg.Panel = PanelAll
	}
	if cfg.Panel != PanelAll && !dashboard.ValidPanel(cfg.Panel) {
		return fmt.Errorf("%w: %q", dashboard.ErrUnknownPanel, cfg.Panel)
	}
	base, err := url.Parse(cfg.Server)
	if err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}
	client := &http.Client{Timeout: 10 * time.Second}

	if cfg.Say != "" {
		if err := postChat(client, base, cfg.Say); err != nil {
			return err
		}
	}

	var snap dashboard.Snapshot
	if err := getJSON(client, base, "/api/v1/snapshot", &snap); err != nil {
		return err
	}

	panels := dashboard.Panels
	if cfg.Panel != PanelAll {
		panels = []string{cfg.Panel}
	}
	for i, p := range panels {
		if i > 0 {
			fmt.Fprintln(cfg.Out)
		}
		switch p {
		case traffic.Panel:
			renderFlows(cfg.Out, snap.Flows)
		case decision.Panel:
			renderDecisions(cfg.Out, snap.Decisions)
		case topology.Panel:
			renderTopology(cfg.Out, snap.Topology)
		case chat.Panel:
			renderChat(cfg.Out, snap.Chat)
		}
	}
	return nil
}

func getJSON(client *http.Client, base *url.URL, path string, v any) error {
	u := *base
	u.Path = path
	resp, err := client.Get(u.String())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: status=%s body=%s", path, resp.Status, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func postChat(client *http.Client, base *url.URL, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	u := *base
	u.Path = "/api/v1/chat"
	resp, err := client.Post(u.String(), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST /api/v1/chat: status=%s body=%s", resp.Status, string(b))
	}
	return nil
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(out)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetRowLine(false)
	return t
}

func renderFlows(out io.Writer, s traffic.Snapshot) {
	fmt.Fprintf(out, "Flows  uplink=%d downlink=%d balanced=%d  high=%d medium=%d low=%d\n",
		s.Directions.Uplink, s.Directions.Downlink, s.Directions.Balanced,
		s.Priorities.High, s.Priorities.Medium, s.Priorities.Low)
	t := newTable(out, []string{"ID", "Application", "Priority", "Direction", "Rate", "Status"})
	for _, f := range s.Flows {
		t.Append([]string{f.ID, f.Application, string(f.Priority), f.Direction.Label(), f.Rate, string(f.Status)})
	}
	t.Render()
}

func renderDecisions(out io.Writer, s decision.Snapshot) {
	fmt.Fprintf(out, "Decisions  accuracy=%.1f%%  predictions=%d enforced=%d alerts=%d\n",
		s.Accuracy, s.Counts.Predictions, s.Counts.Enforced, s.Counts.Alerts)
	t := newTable(out, []string{"Time", "Kind", "Application", "Confidence", "Direction", "Status"})
	for _, d := range s.Decisions {
		t.Append([]string{d.Timestamp, string(d.Kind), d.Application, fmt.Sprintf("%.1f%%", d.Confidence), string(d.Direction), string(d.Status)})
	}
	t.Render()
}

func renderTopology(out io.Writer, s topology.Snapshot) {
	fmt.Fprintf(out, "Topology  active=%d/%d  packets=%d\n", s.ActiveNodes, len(s.Nodes), len(s.Packets))
	t := newTable(out, []string{"ID", "Type", "Label", "Status", "Links"})
	for _, n := range s.Nodes {
		t.Append([]string{n.ID, string(n.Type), n.Label, string(n.Status), fmt.Sprintf("%d", topology.Connections(s.Edges, n.ID))})
	}
	t.Render()
	if s.Selected != nil {
		fmt.Fprintf(out, "Selected: %s\n", s.Selected.Node.ID)
	}
}

func renderChat(out io.Writer, s chat.Snapshot) {
	fmt.Fprintf(out, "Assistant  messages=%d  typing=%t\n", len(s.Messages), s.Typing)
	t := newTable(out, []string{"Time", "Role", "Message"})
	for _, m := range s.Messages {
		t.Append([]string{m.Timestamp.Format(time.Kitchen), string(m.Role), strings.TrimSpace(m.Content)})
	}
	t.Render()
}
