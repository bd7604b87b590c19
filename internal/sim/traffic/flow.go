// Package traffic simulates the live traffic-flow list.
package traffic

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/qos-dashboard/internal/sim/catalog"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

// Status is the health badge of a flow.
type Status string

const (
	StatusActive   Status = "active"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

const (
	// InitialFlows is the number of flows synthesised on mount.
	InitialFlows = 8
	// MaxFlows caps the list; the oldest entries are evicted from the tail.
	MaxFlows = 12

	minRate = 10.0
	maxRate = 110.0

	updateThreshold     = 0.3  // update one flow when draw > 0.3
	addThreshold        = 0.7  // add a flow when draw > 0.7
	updateWarnThreshold = 0.85 // updated flow turns warning when draw > 0.85
	mountWarnThreshold  = 0.8  // mounted flow starts warning when draw > 0.8
)

// Flow is one synthetic traffic flow record.
type Flow struct {
	ID          string            `json:"id"`
	Application string            `json:"application"`
	Priority    catalog.Priority  `json:"priority"`
	Direction   catalog.Direction `json:"direction"`
	Rate        string            `json:"rate"`
	RateMbps    float64           `json:"rate_mbps"`
	Status      Status            `json:"status"`
}

// DirectionStats counts flows per direction.
type DirectionStats struct {
	Uplink   int `json:"uplink"`
	Downlink int `json:"downlink"`
	Balanced int `json:"balanced"`
}

// PriorityStats counts flows per priority class.
type PriorityStats struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// CountDirections reduces flows to per-direction counts.
func CountDirections(flows []Flow) DirectionStats {
	var st DirectionStats
	for _, f := range flows {
		switch f.Direction {
		case catalog.Uplink:
			st.Uplink++
		case catalog.Downlink:
			st.Downlink++
		case catalog.Balanced:
			st.Balanced++
		}
	}
	return st
}

// CountPriorities reduces flows to per-priority counts.
func CountPriorities(flows []Flow) PriorityStats {
	var st PriorityStats
	for _, f := range flows {
		switch f.Priority {
		case catalog.PriorityHigh:
			st.High++
		case catalog.PriorityMedium:
			st.Medium++
		case catalog.PriorityLow:
			st.Low++
		}
	}
	return st
}

// drawRate returns a rate in [10,110) truncated to one decimal, so the
// display never reaches the upper bound.
func drawRate(src rng.Source) (float64, string) {
	v := math.Floor(rng.Uniform(src, minRate, maxRate)*10+1e-9) / 10
	return v, fmt.Sprintf("%.1f Mbps", v)
}

func newFlow(src rng.Source, id string, status Status) Flow {
	app := rng.Pick(src, catalog.Applications())
	dir := rng.Pick(src, catalog.Directions)
	mbps, text := drawRate(src)
	return Flow{
		ID:          id,
		Application: app.Name,
		Priority:    app.Priority,
		Direction:   dir,
		Rate:        text,
		RateMbps:    mbps,
		Status:      status,
	}
}

// Mount synthesises the initial flow list.
func Mount(src rng.Source, ids rng.IDFunc) []Flow {
	flows := make([]Flow, 0, MaxFlows)
	for i := 0; i < InitialFlows; i++ {
		id := ids()
		f := newFlow(src, id, StatusActive)
		if rng.Above(src, mountWarnThreshold) {
			f.Status = StatusWarning
		}
		flows = append(flows, f)
	}
	return flows
}

// Change summarises what a Step did.
type Change struct {
	Updated int    // index of the updated flow, -1 when none
	Added   string // id of the prepended flow, empty when none
	Evicted string // id of the evicted flow, empty when none
}

// Step applies one update tick to prev and returns the new list. prev is
// not modified.
func Step(prev []Flow, src rng.Source, ids rng.IDFunc) ([]Flow, Change) {
	next := make([]Flow, len(prev), max(len(prev), MaxFlows)+1)
	copy(next, prev)
	ch := Change{Updated: -1}

	if len(next) > 0 && rng.Above(src, updateThreshold) {
		idx := src.IntN(len(next))
		mbps, text := drawRate(src)
		next[idx].Rate = text
		next[idx].RateMbps = mbps
		next[idx].Status = StatusActive
		if rng.Above(src, updateWarnThreshold) {
			next[idx].Status = StatusWarning
		}
		ch.Updated = idx
	}

	if rng.Above(src, addThreshold) && len(next) < MaxFlows {
		f := newFlow(src, ids(), StatusActive)
		next = append(next, Flow{})
		copy(next[1:], next)
		next[0] = f
		ch.Added = f.ID
		if ch.Updated >= 0 {
			ch.Updated++
		}
	}

	if len(next) > MaxFlows {
		ch.Evicted = next[len(next)-1].ID
		next = next[:MaxFlows]
	}

	return next, ch
}
