package topology

import (
	"github.com/signalsfoundry/qos-dashboard/internal/sim/catalog"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

const (
	// ProgressStep is the progress a packet gains per animation tick.
	ProgressStep = 4
	// MaxProgress is the last progress value a live packet may hold.
	MaxProgress = 100

	spawnThreshold  = 0.3  // spawn when draw > 0.3
	toggleThreshold = 0.97 // toggle a node when draw > 0.97
)

// Packet is one animated packet travelling a link.
type Packet struct {
	ID          string           `json:"id"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Progress    int              `json:"progress"`
	QoS         catalog.QoSClass `json:"qos"`
	Application string           `json:"application"`
}

// Spawn decides whether one spawn tick produces a packet. It draws only when
// at least one link can carry traffic. A link whose tag resolves to no
// catalog application yields no packet.
func Spawn(edges []Edge, src rng.Source, ids rng.IDFunc) (Packet, bool) {
	links := carriers(edges)
	if len(links) == 0 || !rng.Above(src, spawnThreshold) {
		return Packet{}, false
	}
	link := rng.Pick(src, links)
	app, ok := catalog.Resolve(link.Application)
	if !ok {
		return Packet{}, false
	}
	return Packet{
		ID:          ids(),
		From:        link.From,
		To:          link.To,
		QoS:         app.Class,
		Application: app.Name,
	}, true
}

// Animate advances every packet by ProgressStep and drops those past
// MaxProgress. It returns the new live set and the number delivered. prev is
// not modified.
func Animate(prev []Packet) ([]Packet, int) {
	next := make([]Packet, 0, len(prev))
	for _, p := range prev {
		p.Progress += ProgressStep
		if p.Progress > MaxProgress {
			continue
		}
		next = append(next, p)
	}
	return next, len(prev) - len(next)
}

// ToggleStatuses flips each node between active and warning with a small
// independent probability. It returns the new node set and the ids that
// changed. prev is not modified.
func ToggleStatuses(prev []Node, src rng.Source) ([]Node, []string) {
	next := make([]Node, len(prev))
	copy(next, prev)
	var changed []string
	for i := range next {
		if !rng.Above(src, toggleThreshold) {
			continue
		}
		if next[i].Status == StatusActive {
			next[i].Status = StatusWarning
		} else {
			next[i].Status = StatusActive
		}
		changed = append(changed, next[i].ID)
	}
	return next, changed
}
