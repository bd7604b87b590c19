// Package catalog holds the fixed application table shared by every panel.
package catalog

import "strings"

// Priority is the scheduling priority class of an application.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Direction is the dominant traffic direction of a flow.
type Direction string

const (
	Uplink   Direction = "uplink"
	Downlink Direction = "downlink"
	Balanced Direction = "balanced"
)

// Directions is the fixed set flows and decisions draw from.
var Directions = []Direction{Uplink, Downlink, Balanced}

// Label returns the capitalised display name of d.
func (d Direction) Label() string {
	switch d {
	case Uplink:
		return "Uplink"
	case Downlink:
		return "Downlink"
	case Balanced:
		return "Balanced"
	default:
		return "Unknown"
	}
}

// QoSClass is the colour class a topology link or packet is drawn with.
type QoSClass string

const (
	QoSHigh   QoSClass = "high"
	QoSMedium QoSClass = "medium"
	QoSLow    QoSClass = "low"
)

// Application is one row of the catalog.
type Application struct {
	Name     string   `json:"name"`
	Priority Priority `json:"priority"`
	// Policy is the QoS policy label shown by the decision panel.
	Policy string `json:"policy"`
	// Class is the topology QoS class packets of this application use.
	Class QoSClass `json:"qos"`
}

// Unknown is returned for names missing from the catalog.
var Unknown = Application{
	Name:     "unknown",
	Priority: PriorityLow,
	Policy:   "unknown",
	Class:    QoSLow,
}

var applications = []Application{
	{Name: "Netflix", Priority: PriorityMedium, Policy: "High Throughput", Class: QoSMedium},
	{Name: "Amazon Prime", Priority: PriorityMedium, Policy: "High Throughput", Class: QoSMedium},
	{Name: "Google Meet", Priority: PriorityHigh, Policy: "Low Latency", Class: QoSHigh},
	{Name: "Microsoft Teams", Priority: PriorityHigh, Policy: "Low Latency", Class: QoSHigh},
	{Name: "Metaverse/Roblox", Priority: PriorityHigh, Policy: "Ultra-Low Latency", Class: QoSHigh},
	{Name: "GeForce Gaming", Priority: PriorityHigh, Policy: "Ultra-Low Latency", Class: QoSHigh},
}

// Applications returns a copy of the catalog in its fixed order.
func Applications() []Application {
	out := make([]Application, len(applications))
	copy(out, applications)
	return out
}

// Lookup finds an application by exact name. Missing names return Unknown
// and false.
func Lookup(name string) (Application, bool) {
	for _, app := range applications {
		if app.Name == name {
			return app, true
		}
	}
	return Unknown, false
}

// Resolve maps a topology link tag onto the first application whose name
// the tag contains. Tags such as "Streaming" on server links name no
// application and resolve to Unknown, false.
func Resolve(tag string) (Application, bool) {
	if tag == "" {
		return Unknown, false
	}
	for _, app := range applications {
		if strings.Contains(tag, app.Name) {
			return app, true
		}
	}
	return Unknown, false
}
