package app

import (
	"math"
	"testing"

	"github.com/ayusman/pinchview/internal/aggregate"
	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/metric"
)

func defaultParams() Params {
	return Params{
		Topology: detector.HandTopology,
		Policy:   metric.LastHandWins{},
		Offset:   aggregate.OffsetByLandmarks,
	}
}

func hands(ls ...detector.Landmarks) []detector.Landmarks {
	return ls
}

func labels(hs ...detector.Handedness) []detector.Classification {
	out := make([]detector.Classification, len(hs))
	for i, h := range hs {
		out[i] = detector.Classification{Label: h, Score: 0.9}
	}
	return out
}

func TestStep(t *testing.T) {
	prev := metric.Reading{Value: "40%", Distance: 3.2, Hand: 0, Label: detector.Right}

	tests := []struct {
		name         string
		res          *detector.FrameResult
		wantOverlays int
		wantValue    string
		wantUpdated  bool
		wantGrid     bool
		wantPoints   int
	}{
		{
			name:      "nil result keeps the reading",
			res:       nil,
			wantValue: "40%",
		},
		{
			name:      "absent fields keep the reading",
			res:       &detector.FrameResult{},
			wantValue: "40%",
		},
		{
			name: "zero hands gives an empty grid",
			res: &detector.FrameResult{
				Hands:      []detector.Landmarks{},
				Handedness: []detector.Classification{},
				WorldHands: []detector.Landmarks{},
			},
			wantValue: "40%",
			wantGrid:  true,
		},
		{
			name: "identical fingertips read zero",
			res: &detector.FrameResult{
				Hands:      hands(detector.PinchLandmarks(0)),
				Handedness: labels(detector.Right),
			},
			wantOverlays: 1,
			wantValue:    "0%",
			wantUpdated:  true,
		},
		{
			name: "distance inside the dead zone reads zero",
			res: &detector.FrameResult{
				Hands:      hands(detector.PinchLandmarks(0.015)),
				Handedness: labels(detector.Left),
			},
			wantOverlays: 1,
			wantValue:    "0%",
			wantUpdated:  true,
		},
		{
			name: "last measurable hand wins",
			res: &detector.FrameResult{
				Hands:      hands(detector.PinchLandmarks(0.032), detector.PinchLandmarks(0.1)),
				Handedness: labels(detector.Left, detector.Right),
			},
			wantOverlays: 2,
			wantValue:    "100%",
			wantUpdated:  true,
		},
		{
			name: "undefined second hand keeps the first value",
			res: &detector.FrameResult{
				Hands:      hands(detector.PinchLandmarks(0.032), detector.PinchLandmarks(0.1)[:5]),
				Handedness: labels(detector.Left, detector.Right),
			},
			wantOverlays: 2,
			wantValue:    "80%",
			wantUpdated:  true,
		},
		{
			name: "hands without handedness are not drawn",
			res: &detector.FrameResult{
				Hands: hands(detector.PinchLandmarks(0.032)),
			},
			wantValue: "40%",
		},
		{
			name: "mismatched lengths use the common prefix",
			res: &detector.FrameResult{
				Hands:      hands(detector.PinchLandmarks(0.032), detector.PinchLandmarks(0.1)),
				Handedness: labels(detector.Left),
				WorldHands: hands(detector.WorldLandmarks(), detector.WorldLandmarks()),
			},
			wantOverlays: 1,
			wantValue:    "80%",
			wantUpdated:  true,
			wantGrid:     true,
			wantPoints:   detector.NumLandmarks,
		},
		{
			name: "two world hands",
			res: &detector.FrameResult{
				Hands:      hands(detector.OpenPalmLandmarks(), detector.OpenPalmLandmarks()),
				Handedness: labels(detector.Left, detector.Right),
				WorldHands: hands(detector.WorldLandmarks(), detector.WorldLandmarks()),
			},
			wantOverlays: 2,
			wantValue:    "100%",
			wantUpdated:  true,
			wantGrid:     true,
			wantPoints:   2 * detector.NumLandmarks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Step(tt.res, prev, defaultParams())

			if len(plan.Overlays) != tt.wantOverlays {
				t.Errorf("len(Overlays) = %d, want %d", len(plan.Overlays), tt.wantOverlays)
			}
			if plan.Reading.Value != tt.wantValue {
				t.Errorf("Reading.Value = %q, want %q", plan.Reading.Value, tt.wantValue)
			}
			if plan.Updated != tt.wantUpdated {
				t.Errorf("Updated = %v, want %v", plan.Updated, tt.wantUpdated)
			}
			if (plan.Grid != nil) != tt.wantGrid {
				t.Fatalf("Grid present = %v, want %v", plan.Grid != nil, tt.wantGrid)
			}
			if plan.Grid != nil && len(plan.Grid.Landmarks) != tt.wantPoints {
				t.Errorf("grid points = %d, want %d", len(plan.Grid.Landmarks), tt.wantPoints)
			}
		})
	}
}

func TestStep_ReadingSource(t *testing.T) {
	res := &detector.FrameResult{
		Hands:      hands(detector.PinchLandmarks(0.032), detector.PinchLandmarks(0.1)[:5]),
		Handedness: labels(detector.Left, detector.Right),
	}
	plan := Step(res, metric.Initial(), defaultParams())

	if plan.Reading.Hand != 0 || plan.Reading.Label != detector.Left {
		t.Errorf("reading from hand %d (%s), want hand 0 (Left)", plan.Reading.Hand, plan.Reading.Label)
	}
	if math.Abs(plan.Reading.Distance-3.2) > 1e-9 {
		t.Errorf("Distance = %f, want 3.2", plan.Reading.Distance)
	}
}

func TestStep_NilPolicyDefaultsToLastHandWins(t *testing.T) {
	p := defaultParams()
	p.Policy = nil
	res := &detector.FrameResult{
		Hands:      hands(detector.PinchLandmarks(0.1), detector.PinchLandmarks(0.032)),
		Handedness: labels(detector.Left, detector.Right),
	}
	if got := Step(res, metric.Initial(), p).Reading.Value; got != "80%" {
		t.Errorf("Reading.Value = %q, want 80%%", got)
	}
}

func TestStep_LegacyDistance(t *testing.T) {
	p := defaultParams()
	p.Calculator = metric.Calculator{Mode: metric.ModeLegacyXOR}
	res := &detector.FrameResult{
		Hands:      hands(detector.PinchLandmarks(0)),
		Handedness: labels(detector.Right),
	}
	plan := Step(res, metric.Initial(), p)

	// 0 -> 2 -> 0 -> 2
	if math.Abs(plan.Reading.Distance-math.Sqrt2) > 1e-9 {
		t.Errorf("Distance = %f, want sqrt(2)", plan.Reading.Distance)
	}
	if plan.Reading.Value != "0%" {
		t.Errorf("Reading.Value = %q, want 0%%", plan.Reading.Value)
	}
}
