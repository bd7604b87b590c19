// Package topology simulates the 5G network diagram: a fixed graph, packets
// animated along its links and occasional node status flips.
package topology

import (
	"github.com/signalsfoundry/qos-dashboard/internal/sim/catalog"
)

// NodeType is the network function a node represents.
type NodeType string

const (
	NodeUE     NodeType = "UE"
	NodeGNodeB NodeType = "gNodeB"
	NodeAMF    NodeType = "AMF"
	NodeSMF    NodeType = "SMF"
	NodeUPF    NodeType = "UPF"
	NodeServer NodeType = "Server"
)

// NodeStatus is the health of a node. Offline exists for display but no
// transition produces it.
type NodeStatus string

const (
	StatusActive  NodeStatus = "active"
	StatusWarning NodeStatus = "warning"
	StatusOffline NodeStatus = "offline"
)

// Node is a vertex of the diagram. X and Y are percentages of the canvas.
type Node struct {
	ID          string     `json:"id"`
	Type        NodeType   `json:"type"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Status      NodeStatus `json:"status"`
	Label       string     `json:"label"`
	Application string     `json:"application,omitempty"`
}

// Edge is a directed link. Application tags which traffic rides the link.
type Edge struct {
	From        string            `json:"from"`
	To          string            `json:"to"`
	QoS         catalog.QoSClass  `json:"qos"`
	Active      bool              `json:"active"`
	Application string            `json:"application,omitempty"`
	Direction   catalog.Direction `json:"direction,omitempty"`
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var defaultNodes = []Node{
	{ID: "ue1", Type: NodeUE, X: 10, Y: 25, Status: StatusActive, Label: "Netflix", Application: "Netflix"},
	{ID: "ue2", Type: NodeUE, X: 10, Y: 40, Status: StatusActive, Label: "Teams", Application: "Microsoft Teams"},
	{ID: "ue3", Type: NodeUE, X: 10, Y: 55, Status: StatusActive, Label: "Gaming", Application: "GeForce Gaming"},
	{ID: "ue4", Type: NodeUE, X: 10, Y: 70, Status: StatusActive, Label: "Prime", Application: "Amazon Prime"},

	{ID: "gnb1", Type: NodeGNodeB, X: 30, Y: 47, Status: StatusActive, Label: "gNB-01"},

	{ID: "amf1", Type: NodeAMF, X: 50, Y: 35, Status: StatusActive, Label: "AMF"},
	{ID: "smf1", Type: NodeSMF, X: 50, Y: 59, Status: StatusActive, Label: "SMF"},
	{ID: "upf1", Type: NodeUPF, X: 70, Y: 47, Status: StatusActive, Label: "UPF"},

	{ID: "srv1", Type: NodeServer, X: 90, Y: 35, Status: StatusActive, Label: "Streaming", Application: "Streaming Services"},
	{ID: "srv2", Type: NodeServer, X: 90, Y: 47, Status: StatusActive, Label: "Gaming", Application: "Gaming Servers"},
	{ID: "srv3", Type: NodeServer, X: 90, Y: 59, Status: StatusActive, Label: "Conference", Application: "Conference Servers"},
}

var defaultEdges = []Edge{
	{From: "ue1", To: "gnb1", QoS: catalog.QoSMedium, Active: true, Application: "Netflix", Direction: catalog.Downlink},
	{From: "ue2", To: "gnb1", QoS: catalog.QoSHigh, Active: true, Application: "Microsoft Teams", Direction: catalog.Balanced},
	{From: "ue3", To: "gnb1", QoS: catalog.QoSHigh, Active: true, Application: "GeForce Gaming", Direction: catalog.Balanced},
	{From: "ue4", To: "gnb1", QoS: catalog.QoSMedium, Active: true, Application: "Amazon Prime", Direction: catalog.Downlink},

	{From: "gnb1", To: "amf1", QoS: catalog.QoSHigh, Active: true},
	{From: "gnb1", To: "upf1", QoS: catalog.QoSHigh, Active: true},

	{From: "amf1", To: "smf1", QoS: catalog.QoSHigh, Active: true},
	{From: "smf1", To: "upf1", QoS: catalog.QoSHigh, Active: true},

	// Server tags name a service family; none of them contains a catalog
	// application name, so these links never carry packets.
	{From: "upf1", To: "srv1", QoS: catalog.QoSMedium, Active: true, Application: "Streaming"},
	{From: "upf1", To: "srv2", QoS: catalog.QoSHigh, Active: true, Application: "Gaming"},
	{From: "upf1", To: "srv3", QoS: catalog.QoSHigh, Active: true, Application: "Conference"},
}

// DefaultNodes returns a copy of the fixed node set.
func DefaultNodes() []Node {
	return append([]Node(nil), defaultNodes...)
}

// DefaultEdges returns a copy of the fixed link set.
func DefaultEdges() []Edge {
	return append([]Edge(nil), defaultEdges...)
}

// Position returns the coordinates of the node with id, or the origin when no
// such node exists.
func Position(nodes []Node, id string) Point {
	for _, n := range nodes {
		if n.ID == id {
			return Point{X: n.X, Y: n.Y}
		}
	}
	return Point{}
}

// Lerp interpolates between a and b. t=0 yields a and t=1 yields b exactly.
func Lerp(a, b Point, t float64) Point {
	return Point{
		X: a.X*(1-t) + b.X*t,
		Y: a.Y*(1-t) + b.Y*t,
	}
}

// PacketPosition places p on the canvas by its progress along its link.
func PacketPosition(nodes []Node, p Packet) Point {
	return Lerp(Position(nodes, p.From), Position(nodes, p.To), float64(p.Progress)/100)
}

// Connections counts the links touching node id in either direction.
func Connections(edges []Edge, id string) int {
	n := 0
	for _, e := range edges {
		if e.From == id || e.To == id {
			n++
		}
	}
	return n
}

// CountActive counts nodes whose status is active.
func CountActive(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		if node.Status == StatusActive {
			n++
		}
	}
	return n
}

// carriers returns the links that are active and tagged with an application.
func carriers(edges []Edge) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.Active && e.Application != "" {
			out = append(out, e)
		}
	}
	return out
}
