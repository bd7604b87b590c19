// Package decision simulates the classification-decision feed and the
// model-accuracy random walk.
package decision

import (
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/sim/catalog"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

// Kind is the category of a classification decision.
type Kind string

const (
	KindPrediction  Kind = "prediction"
	KindEnforcement Kind = "enforcement"
	KindAlert       Kind = "alert"
)

// Status is the outcome badge of a decision.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusInfo    Status = "info"
)

const (
	// InitialDecisions is the number of decisions synthesised on mount.
	InitialDecisions = 5
	// MaxDecisions is the number of newest decisions kept.
	MaxDecisions = 7
	// TrendLength is the number of samples in every trend sparkline.
	TrendLength = 10

	// InitialAccuracy is the model accuracy shown on mount.
	InitialAccuracy = 94.5
	MinAccuracy     = 85.0
	MaxAccuracy     = 99.0

	// TimeLayout renders decision timestamps as a local wall-clock time.
	TimeLayout = "3:04:05 PM"

	lookback = 5 * time.Minute

	firstCut  = 0.7 // alert / warning when draw > 0.7
	secondCut = 0.5 // enforcement / success when a second draw > 0.5
)

// Decision is one synthetic classification decision.
type Decision struct {
	ID          string            `json:"id"`
	Kind        Kind              `json:"kind"`
	Application string            `json:"application"`
	Confidence  float64           `json:"confidence"`
	Priority    catalog.Priority  `json:"priority"`
	Direction   catalog.Direction `json:"direction"`
	Timestamp   string            `json:"timestamp"`
	At          time.Time         `json:"at"`
	Trend       []float64         `json:"trend"`
	Status      Status            `json:"status"`
}

// KindCounts counts decisions per kind.
type KindCounts struct {
	Predictions int `json:"predictions"`
	Enforced    int `json:"enforced"`
	Alerts      int `json:"alerts"`
}

// CountKinds reduces decisions to per-kind counts.
func CountKinds(ds []Decision) KindCounts {
	var c KindCounts
	for _, d := range ds {
		switch d.Kind {
		case KindPrediction:
			c.Predictions++
		case KindEnforcement:
			c.Enforced++
		case KindAlert:
			c.Alerts++
		}
	}
	return c
}

// kindByIndex cycles alert, enforcement, prediction.
func kindByIndex(i int) (Kind, Status) {
	switch i % 3 {
	case 0:
		return KindAlert, StatusWarning
	case 1:
		return KindEnforcement, StatusSuccess
	default:
		return KindPrediction, StatusInfo
	}
}

// drawKind makes up to two weighted coin flips. The second draw only happens
// when the first one fails.
func drawKind(src rng.Source) Kind {
	if rng.Above(src, firstCut) {
		return KindAlert
	}
	if rng.Above(src, secondCut) {
		return KindEnforcement
	}
	return KindPrediction
}

func drawStatus(src rng.Source) Status {
	if rng.Above(src, firstCut) {
		return StatusWarning
	}
	if rng.Above(src, secondCut) {
		return StatusSuccess
	}
	return StatusInfo
}

func drawTrend(src rng.Source) []float64 {
	trend := make([]float64, TrendLength)
	for i := range trend {
		trend[i] = rng.Uniform(src, 0, 100)
	}
	return trend
}

func drawConfidence(src rng.Source) float64 {
	return rng.Uniform(src, 80, 100)
}

// Mount synthesises the initial decisions with timestamps spread over the
// five minutes before now.
func Mount(src rng.Source, ids rng.IDFunc, now time.Time) []Decision {
	out := make([]Decision, 0, MaxDecisions)
	for i := 0; i < InitialDecisions; i++ {
		app := rng.Pick(src, catalog.Applications())
		kind, status := kindByIndex(i)
		conf := drawConfidence(src)
		dir := rng.Pick(src, catalog.Directions)
		at := now.Add(-time.Duration(src.Float64() * float64(lookback)))
		out = append(out, Decision{
			ID:          ids(),
			Kind:        kind,
			Application: app.Name,
			Confidence:  conf,
			Priority:    app.Priority,
			Direction:   dir,
			Timestamp:   at.Local().Format(TimeLayout),
			At:          at,
			Trend:       drawTrend(src),
			Status:      status,
		})
	}
	return out
}

// Next synthesises one decision stamped at now.
func Next(src rng.Source, ids rng.IDFunc, now time.Time) Decision {
	app := rng.Pick(src, catalog.Applications())
	kind := drawKind(src)
	conf := drawConfidence(src)
	dir := rng.Pick(src, catalog.Directions)
	trend := drawTrend(src)
	status := drawStatus(src)
	return Decision{
		ID:          ids(),
		Kind:        kind,
		Application: app.Name,
		Confidence:  conf,
		Priority:    app.Priority,
		Direction:   dir,
		Timestamp:   now.Local().Format(TimeLayout),
		At:          now,
		Trend:       trend,
		Status:      status,
	}
}

// Prepend returns a new list with d first and at most MaxDecisions entries.
// prev is not modified.
func Prepend(prev []Decision, d Decision) []Decision {
	n := min(len(prev), MaxDecisions-1)
	out := make([]Decision, 0, n+1)
	out = append(out, d)
	return append(out, prev[:n]...)
}

// Walk moves accuracy by delta and clamps the result to [MinAccuracy,
// MaxAccuracy].
func Walk(accuracy, delta float64) float64 {
	return min(MaxAccuracy, max(MinAccuracy, accuracy+delta))
}

// StepAccuracy applies one random step in [-1,1) to accuracy.
func StepAccuracy(accuracy float64, src rng.Source) float64 {
	return Walk(accuracy, (src.Float64()-0.5)*2)
}
