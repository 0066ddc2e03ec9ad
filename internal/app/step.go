package app

import (
	"github.com/ayusman/pinchview/internal/aggregate"
	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/metric"
)

// Params fixes everything Step needs besides the frame and the previous reading.
type Params struct {
	Topology   detector.Topology
	Calculator metric.Calculator
	Policy     metric.Policy
	Offset     aggregate.OffsetMode
}

// Overlay is one hand to draw.
type Overlay struct {
	Landmarks detector.Landmarks
	Label     detector.Handedness
}

// Plan is the work one frame produces.
type Plan struct {
	// Overlays are drawn in order over the background.
	Overlays []Overlay
	// Reading is the metric after this frame. It equals the previous reading
	// unless Updated is set.
	Reading metric.Reading
	Updated bool
	// Grid is the aggregated point cloud, or nil when the frame carried no
	// world landmarks and the grid should be cleared.
	Grid *aggregate.Result
}

// Step computes a frame's plan without side effects. Per-hand work happens
// only when both hands and handedness are present, and covers their common
// prefix.
func Step(res *detector.FrameResult, prev metric.Reading, p Params) Plan {
	plan := Plan{Reading: prev}
	if res == nil {
		return plan
	}

	policy := p.Policy
	if policy == nil {
		policy = metric.LastHandWins{}
	}

	if res.Hands != nil && res.Handedness != nil {
		n := min(len(res.Hands), len(res.Handedness))
		plan.Overlays = make([]Overlay, 0, n)
		candidates := make([]metric.Candidate, 0, n)

		for i := 0; i < n; i++ {
			hand, label := res.Hands[i], res.Handedness[i].Label
			plan.Overlays = append(plan.Overlays, Overlay{Landmarks: hand, Label: label})

			d, ok := p.Calculator.Measure(hand, p.Topology)
			candidates = append(candidates, metric.Candidate{
				Hand:     i,
				Label:    label,
				Distance: d,
				OK:       ok,
			})
		}

		plan.Reading, plan.Updated = policy.Resolve(prev, candidates)
	}

	if res.WorldHands != nil {
		agg := aggregate.Aggregate(res.WorldHands, res.Handedness, p.Topology, p.Offset)
		plan.Grid = &agg
	}

	return plan
}
